package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Manage realtime streams",
	Args:  cobra.NoArgs,
	RunE:  runStreamsList,
}

var streamsStopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a running stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runStreamsStop,
}

var streamsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Tail the scored point feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tailFeed(cmd.Context(), 0)
	},
}

func init() {
	streamsCmd.AddCommand(streamsStopCmd)
	streamsCmd.AddCommand(streamsTailCmd)
}

func runStreamsList(cmd *cobra.Command, args []string) error {
	streams, err := apiClient.Streams(cmd.Context())
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}
	if len(streams) == 0 {
		fmt.Println("No streams running")
		return nil
	}
	for _, name := range streams {
		fmt.Println(name)
	}
	return nil
}

func runStreamsStop(cmd *cobra.Command, args []string) error {
	if err := apiClient.StopStream(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	fmt.Printf("Stopped stream: %s\n", args[0])
	return nil
}
