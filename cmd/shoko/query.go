package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/shoko/internal/cli"
)

var (
	indexAlgorithm string
	indexMetric    string
	indexServer    string

	searchVector string
	searchK      int
	searchServer string
	searchOutput string
)

var indexCmd = &cobra.Command{
	Use:   "index [library-id]",
	Short: "Rebuild a library's index on a running server",
	Long: `Rebuilds the index of a library from its current chunks.
Searches keep using the previous index until the new one is published.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search [library-id]",
	Short: "Find the nearest chunks to a query vector",
	Example: `  shoko search papers --vector 0.1,0.2,0.3
  shoko search papers --vector "[0.1, 0.2, 0.3]" --k 10 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	indexCmd.Flags().StringVar(&indexAlgorithm, "algorithm", "", "index algorithm: linear_search, kd_tree or ball_tree (default: server config)")
	indexCmd.Flags().StringVar(&indexMetric, "metric", "", "distance metric: euclidean or cosine (default: server config)")
	indexCmd.Flags().StringVar(&indexServer, "server", defaultServerURL, "server URL")
	rootCmd.AddCommand(indexCmd)

	searchCmd.Flags().StringVar(&searchVector, "vector", "", "comma-separated query embedding")
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of neighbors (default: server config)")
	searchCmd.Flags().StringVar(&searchServer, "server", defaultServerURL, "server URL")
	searchCmd.Flags().StringVar(&searchOutput, "output", "text", "output format: text or json")
	_ = searchCmd.MarkFlagRequired("vector")
	rootCmd.AddCommand(searchCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	resp, err := cli.NewClient(indexServer).Index(cmd.Context(), args[0], indexAlgorithm, indexMetric)
	if err != nil {
		return err
	}
	cli.WriteIndexResult(cmd.OutOrStdout(), resp)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(searchOutput)
	if err != nil {
		return err
	}
	query, err := cli.ParseVector(searchVector)
	if err != nil {
		return err
	}
	resp, err := cli.NewClient(searchServer).Search(cmd.Context(), args[0], query, searchK)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
}
