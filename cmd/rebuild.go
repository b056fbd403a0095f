package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild all matchup aggregates from the battle log",
	Long: `Clear the aggregate table and re-derive every matchup row from the raw
battle log. Useful after hand-editing the database or to repair drift.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := engine.RebuildStats()
	if err != nil {
		return fmt.Errorf("rebuild stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Rebuilt %d matchup rows from the battle log.\n", n)
	return nil
}
