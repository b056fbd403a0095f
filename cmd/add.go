package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/arena"
)

var (
	addScope  string
	addSeason int
	addTag    string
	addAtk    string
	addDef    string
	addWins   int
	addLosses int
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Manually record battle outcomes for a matchup",
	Long: `Record a batch of wins and losses for one attacker/defender matchup.
Teams are comma-separated unit IDs in formation order, e.g. --atk 10017,10018,13009,10045,26012.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addScope, "scope", "global", "scope identifier")
	addCmd.Flags().IntVar(&addSeason, "season", 1, "season number")
	addCmd.Flags().StringVar(&addTag, "tag", "", "free-form tag")
	addCmd.Flags().StringVar(&addAtk, "atk", "", "attacking team unit IDs (comma-separated, in order)")
	addCmd.Flags().StringVar(&addDef, "def", "", "defending team unit IDs (comma-separated, in order)")
	addCmd.Flags().IntVar(&addWins, "wins", 0, "number of attacker wins")
	addCmd.Flags().IntVar(&addLosses, "losses", 0, "number of attacker losses")
	addCmd.MarkFlagRequired("atk")
	addCmd.MarkFlagRequired("def")
}

func runAdd(cmd *cobra.Command, args []string) error {
	atkTeam, err := parseTeamFlag(addAtk)
	if err != nil {
		return fmt.Errorf("parse --atk: %w", err)
	}
	defTeam, err := parseTeamFlag(addDef)
	if err != nil {
		return fmt.Errorf("parse --def: %w", err)
	}

	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	added, err := engine.AddManual(arena.ManualAdd{
		Scope: addScope, Season: addSeason, Tag: addTag,
		AtkTeam: atkTeam, DefTeam: defTeam,
		Wins: addWins, Losses: addLosses,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Added %d battle records to scope %q. Stats incrementally updated.\n", added, addScope)
	return nil
}

func parseTeamFlag(s string) ([]int, error) {
	var team []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("unit ID %q is not an integer", part)
		}
		team = append(team, id)
	}
	return team, nil
}
