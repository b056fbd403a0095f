package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var seasonsScope string

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "List seasons with stored data",
	Args:  cobra.NoArgs,
	RunE:  runSeasons,
}

func init() {
	seasonsCmd.Flags().StringVar(&seasonsScope, "scope", "all", "scope identifier, or 'all'")
}

func runSeasons(cmd *cobra.Command, args []string) error {
	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	seasons, err := engine.ListSeasons(seasonsScope)
	if err != nil {
		return fmt.Errorf("list seasons: %w", err)
	}
	for _, s := range seasons {
		fmt.Fprintln(os.Stdout, s)
	}
	return nil
}
