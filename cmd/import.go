package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/arena"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Bulk-import battle records from a JSON export",
	Long: `Load a JSON array of battle records into the log and rebuild all matchup
aggregates from scratch. Records with an empty team are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	records, err := arena.ParseImportFile(data)
	if err != nil {
		return err
	}

	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	imported, statsRows, err := engine.ImportBattles(records)
	if err != nil {
		return err
	}
	if imported == 0 {
		fmt.Fprintln(os.Stdout, "No valid records found to import.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "Imported %d battles; rebuilt %d matchup rows.\n", imported, statsRows)
	return nil
}
