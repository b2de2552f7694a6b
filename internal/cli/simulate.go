package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iris-analytics/iris/internal/client"
	"github.com/iris-analytics/iris/internal/realtime"
)

var (
	simulateTail  bool
	simulateCount int

	flaggedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF005F")).Bold(true)
	streamStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7"))
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Run a realtime simulation scenario",
	Long: `Start the simulated streams described in a scenario file and tail
the scored point feed. Flagged points are highlighted.

The streams keep running on the server after the command exits; use
'iris streams stop <name>' to stop them.

Examples:
  iris simulate scenarios/checkout.yaml
  iris simulate scenarios/checkout.yaml --count 200
  iris simulate scenarios/checkout.yaml --tail=false`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().BoolVar(&simulateTail, "tail", true, "tail the point feed after starting")
	simulateCmd.Flags().IntVar(&simulateCount, "count", 0, "stop tailing after this many points (0 = until interrupted)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	scenario, err := realtime.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	for _, cfg := range scenario.Streams {
		req := client.StreamRequest{
			Name:      cfg.Name,
			Seed:      cfg.Seed,
			Baseline:  cfg.Baseline,
			Amplitude: cfg.Amplitude,
			Period:    cfg.Period,
			Noise:     cfg.Noise,
			SpikeProb: cfg.SpikeProb,
			SpikeMag:  cfg.SpikeMag,
		}
		if cfg.Interval > 0 {
			req.Interval = cfg.Interval.String()
		}
		if err := apiClient.StartStream(ctx, req); err != nil {
			return fmt.Errorf("start stream %s: %w", cfg.Name, err)
		}
		fmt.Printf("Started stream: %s\n", cfg.Name)
	}

	if !simulateTail {
		return nil
	}

	fmt.Println("\nTailing feed (Ctrl+C to stop)...")
	return tailFeed(ctx, simulateCount)
}

func tailFeed(ctx context.Context, limit int) error {
	seen := 0
	err := apiClient.Feed(ctx, func(p realtime.Point) error {
		line := fmt.Sprintf("%s %s value=%.2f score=%.3f",
			p.Timestamp.Format("15:04:05.000"),
			streamStyle.Render(fmt.Sprintf("%-12s", p.Stream)),
			p.Value, p.Score)
		if p.Flagged {
			line = flaggedStyle.Render(line + "  ANOMALY")
		}
		fmt.Println(line)

		seen++
		if limit > 0 && seen >= limit {
			return client.ErrStopFeed
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
