package realtime

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a set of stream definitions loaded from a YAML file.
type Scenario struct {
	Streams []StreamConfig `yaml:"streams"`
}

// UnmarshalYAML decodes a stream definition, parsing the interval from
// its duration string form.
func (c *StreamConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name      string  `yaml:"name"`
		Interval  string  `yaml:"interval"`
		Seed      int64   `yaml:"seed"`
		Baseline  float64 `yaml:"baseline"`
		Amplitude float64 `yaml:"amplitude"`
		Period    int     `yaml:"period"`
		Noise     float64 `yaml:"noise"`
		SpikeProb float64 `yaml:"spike_prob"`
		SpikeMag  float64 `yaml:"spike_mag"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	var interval time.Duration
	if raw.Interval != "" {
		var err error
		interval, err = time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("stream %s: bad interval %q: %w", raw.Name, raw.Interval, err)
		}
	}

	*c = StreamConfig{
		Name:      raw.Name,
		Interval:  interval,
		Seed:      raw.Seed,
		Baseline:  raw.Baseline,
		Amplitude: raw.Amplitude,
		Period:    raw.Period,
		Noise:     raw.Noise,
		SpikeProb: raw.SpikeProb,
		SpikeMag:  raw.SpikeMag,
	}
	return nil
}

// LoadScenario parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Streams) == 0 {
		return nil, fmt.Errorf("scenario defines no streams")
	}
	seen := make(map[string]bool, len(sc.Streams))
	for i := range sc.Streams {
		name := sc.Streams[i].Name
		if name == "" {
			return nil, fmt.Errorf("stream %d: name required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate stream name %q", name)
		}
		seen[name] = true
	}
	return &sc, nil
}

// StartAll launches every stream in the scenario. On any failure it stops
// the streams already started and returns the error.
func (sc *Scenario) StartAll(sim *Simulator) ([]*Stream, error) {
	var started []*Stream
	for _, cfg := range sc.Streams {
		stream, err := sim.Start(cfg)
		if err != nil {
			for _, s := range started {
				_ = sim.Stop(s.Name)
			}
			return nil, err
		}
		started = append(started, stream)
	}
	return started, nil
}
