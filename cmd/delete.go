package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/model"
	"github.com/rinko/go-arena-stats/internal/storage"
)

var (
	delScope  string
	delSeason int
	delTag    string
	delAtkSig string
	delDefSig string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one matchup and its battle records",
	Args:  cobra.NoArgs,
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&delScope, "scope", "global", "scope identifier")
	deleteCmd.Flags().IntVar(&delSeason, "season", 1, "season number")
	deleteCmd.Flags().StringVar(&delTag, "tag", "", "tag")
	deleteCmd.Flags().StringVar(&delAtkSig, "atk-sig", "", "attacker strict signature")
	deleteCmd.Flags().StringVar(&delDefSig, "def-sig", "", "defender strict signature")
	deleteCmd.MarkFlagRequired("atk-sig")
	deleteCmd.MarkFlagRequired("def-sig")
}

func runDelete(cmd *cobra.Command, args []string) error {
	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	key := model.MatchupKey{
		Scope: delScope, Season: delSeason, Tag: delTag,
		AtkSig: delAtkSig, DefSig: delDefSig,
	}
	if err := engine.DeleteMatchup(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no matchup found for %s vs %s in scope %q season %d", delAtkSig, delDefSig, delScope, delSeason)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "Deleted matchup %s vs %s and its battle records.\n", delAtkSig, delDefSig)
	return nil
}
