package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var datasetName string

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage datasets",
}

var datasetsAddCmd = &cobra.Command{
	Use:   "add <csv-path>",
	Short: "Register a CSV file as a dataset",
	Long: `Register a CSV file as a dataset. The path is resolved on the
server's filesystem; the file is parsed, its schema inferred, and the
dataset becomes available for analysis.

Examples:
  iris datasets add ./data/checkouts.csv
  iris datasets add /srv/metrics/latency.csv --name latency-prod`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetsAdd,
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered datasets",
	Args:  cobra.NoArgs,
	RunE:  runDatasetsList,
}

var datasetsShowCmd = &cobra.Command{
	Use:   "show <dataset-id>",
	Short: "Show a dataset's schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsShow,
}

func init() {
	datasetsAddCmd.Flags().StringVarP(&datasetName, "name", "n", "", "dataset name (defaults to the file name)")

	datasetsCmd.AddCommand(datasetsAddCmd)
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsShowCmd)
}

func runDatasetsAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	ds, err := apiClient.AddDataset(cmd.Context(), path, datasetName)
	if err != nil {
		return fmt.Errorf("add dataset: %w", err)
	}

	fmt.Printf("Added dataset: %s (%s)\n", ds.Name, ds.ID)
	fmt.Printf("  Rows: %d\n", ds.RowCount)
	if verbose {
		for _, col := range ds.Columns {
			fmt.Printf("  Column: %-20s %s\n", col.Name, col.Type)
		}
	}
	return nil
}

func runDatasetsList(cmd *cobra.Command, args []string) error {
	datasets, err := apiClient.Datasets(cmd.Context())
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}

	if len(datasets) == 0 {
		fmt.Println("No datasets registered")
		return nil
	}

	fmt.Printf("%-10s %-24s %-8s %s\n", "ID", "NAME", "ROWS", "COLUMNS")
	fmt.Println("------------------------------------------------------------")
	for _, ds := range datasets {
		fmt.Printf("%-10s %-24s %-8d %d\n", ds.ID, ds.Name, ds.RowCount, len(ds.Columns))
	}
	return nil
}

func runDatasetsShow(cmd *cobra.Command, args []string) error {
	ds, err := apiClient.Dataset(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get dataset: %w", err)
	}

	fmt.Printf("Dataset: %s (%s)\n", ds.Name, ds.ID)
	fmt.Printf("  Path: %s\n", ds.Path)
	fmt.Printf("  Rows: %d\n", ds.RowCount)
	fmt.Println("  Columns:")
	for _, col := range ds.Columns {
		fmt.Printf("    %-20s %s\n", col.Name, col.Type)
	}
	return nil
}
