// Package realtime generates synthetic metric streams and scores each
// point incrementally against a rolling window.
package realtime

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/iris-analytics/iris/internal/agent"
)

// Point is one scored observation on a stream.
type Point struct {
	Stream    string    `json:"stream"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Score     float64   `json:"score"`
	Flagged   bool      `json:"flagged"`
}

// StreamConfig describes one synthetic stream. The generator is fully
// determined by the seed: a sine baseline plus Gaussian noise, with
// occasional injected spikes.
type StreamConfig struct {
	Name      string        `yaml:"name"`
	Interval  time.Duration `yaml:"interval"`
	Seed      int64         `yaml:"seed"`
	Baseline  float64       `yaml:"baseline"`
	Amplitude float64       `yaml:"amplitude"`
	Period    int           `yaml:"period"`
	Noise     float64       `yaml:"noise"`
	SpikeProb float64       `yaml:"spike_prob"`
	SpikeMag  float64       `yaml:"spike_mag"`
}

func (c *StreamConfig) validate(defaultInterval time.Duration) error {
	if c.Name == "" {
		return fmt.Errorf("stream name required")
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Period <= 0 {
		c.Period = 60
	}
	if c.SpikeProb < 0 || c.SpikeProb >= 1 {
		return fmt.Errorf("stream %s: spike_prob must be in [0,1), got %v", c.Name, c.SpikeProb)
	}
	return nil
}

// Stream is one running generator. Stop is synchronous: it returns only
// after the generator goroutine has exited, so no point is published
// afterwards.
type Stream struct {
	Name string

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Stop halts the stream and waits for its goroutine to finish.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Simulator owns the synthetic streams. Streams are independent: each has
// its own goroutine, random source, and scoring window.
type Simulator struct {
	bus     *Bus
	model   *agent.AnomalyModel
	logger  *slog.Logger
	tickDef time.Duration

	mu      sync.Mutex
	streams map[string]*Stream
}

// NewSimulator creates a simulator publishing onto bus. model may be nil;
// points then carry a zero score and are never flagged.
func NewSimulator(bus *Bus, model *agent.AnomalyModel, logger *slog.Logger, defaultInterval time.Duration) *Simulator {
	return &Simulator{
		bus:     bus,
		model:   model,
		logger:  logger,
		tickDef: defaultInterval,
		streams: make(map[string]*Stream),
	}
}

// Bus returns the bus this simulator publishes to.
func (s *Simulator) Bus() *Bus {
	return s.bus
}

// Start launches a stream. Stream names are unique; starting a name that
// is already running is an error.
func (s *Simulator) Start(cfg StreamConfig) (*Stream, error) {
	if err := cfg.validate(s.tickDef); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[cfg.Name]; ok {
		return nil, fmt.Errorf("stream %s already running", cfg.Name)
	}

	stream := &Stream{
		Name: cfg.Name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.streams[cfg.Name] = stream

	var scorer *agent.Scorer
	if s.model != nil {
		scorer = s.model.NewScorer()
	}
	go s.generate(cfg, stream, scorer)

	s.logger.Info("stream started", "stream", cfg.Name, "interval", cfg.Interval, "seed", cfg.Seed)
	return stream, nil
}

// Stop halts the named stream.
func (s *Simulator) Stop(name string) error {
	s.mu.Lock()
	stream, ok := s.streams[name]
	if ok {
		delete(s.streams, name)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("stream %s not running", name)
	}
	stream.Stop()
	s.logger.Info("stream stopped", "stream", name)
	return nil
}

// StopAll halts every running stream and waits for all of them.
func (s *Simulator) StopAll() {
	s.mu.Lock()
	streams := make([]*Stream, 0, len(s.streams))
	for _, stream := range s.streams {
		streams = append(streams, stream)
	}
	s.streams = make(map[string]*Stream)
	s.mu.Unlock()

	for _, stream := range streams {
		stream.Stop()
	}
}

// Running returns the names of the active streams, sorted.
func (s *Simulator) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Simulator) generate(cfg StreamConfig, stream *Stream, scorer *agent.Scorer) {
	defer close(stream.done)

	rng := rand.New(rand.NewSource(cfg.Seed))
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-stream.stop:
			return
		case now := <-ticker.C:
			value := cfg.Baseline +
				cfg.Amplitude*math.Sin(2*math.Pi*float64(step)/float64(cfg.Period)) +
				rng.NormFloat64()*cfg.Noise
			if cfg.SpikeProb > 0 && rng.Float64() < cfg.SpikeProb {
				value += cfg.SpikeMag
			}
			step++

			point := Point{
				Stream:    cfg.Name,
				Timestamp: now,
				Value:     value,
			}
			if scorer != nil {
				point.Score, point.Flagged = scorer.Score(value)
			}
			if point.Flagged {
				s.logger.Debug("point flagged", "stream", cfg.Name, "value", point.Value, "score", point.Score)
			}
			s.bus.Publish(point)
		}
	}
}
