package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/model"
)

var (
	listPage       int
	listLimit      int
	listScope      string
	listSeason     int
	listTag        string
	listSort       string
	listAsc        bool
	listMinBattles int
	listMinRate    float64
	listAtkHas     string
	listDefHas     string
	listSmart      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ranked matchup summaries",
	Long: `Show a filtered, sorted page of matchup summaries. With --smart,
compositions differing only in special-unit order are grouped together and
their counts summed.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "result page")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "rows per page")
	listCmd.Flags().StringVar(&listScope, "scope", "global", "scope identifier, or 'all'")
	listCmd.Flags().IntVar(&listSeason, "season", 0, "filter by season (0 = any)")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by exact tag")
	listCmd.Flags().StringVar(&listSort, "sort", "default", "sort key: default|newest|win_rate|composite")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "sort ascending")
	listCmd.Flags().IntVar(&listMinBattles, "min-battles", 0, "minimum total battles")
	listCmd.Flags().Float64Var(&listMinRate, "min-win-rate", 0, "minimum win rate (0-1)")
	listCmd.Flags().StringVar(&listAtkHas, "atk-has", "", "attacker must contain these unit IDs (comma-separated)")
	listCmd.Flags().StringVar(&listDefHas, "def-has", "", "defender must contain these unit IDs (comma-separated)")
	listCmd.Flags().BoolVar(&listSmart, "smart", false, "group by smart signature (specials interchangeable)")
}

func runList(cmd *cobra.Command, args []string) error {
	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	q := model.SummaryQuery{
		Page:       listPage,
		Limit:      listLimit,
		Scope:      listScope,
		Sort:       listSort,
		SmartGroup: listSmart,
	}
	if listAsc {
		q.Sort += "_asc"
	}
	if listSeason > 0 {
		q.Season = &listSeason
	}
	if listTag != "" {
		q.Tag = &listTag
	}
	if listMinBattles > 0 {
		q.MinBattles = &listMinBattles
	}
	if listMinRate > 0 {
		q.MinWinRate = &listMinRate
	}
	if q.AtkContains, err = parseTeamFlag(listAtkHas); err != nil {
		return fmt.Errorf("parse --atk-has: %w", err)
	}
	if q.DefContains, err = parseTeamFlag(listDefHas); err != nil {
		return fmt.Errorf("parse --def-has: %w", err)
	}

	rows, total, err := engine.ListSummaries(q)
	if err != nil {
		return fmt.Errorf("list summaries: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No matchups found. Run 'arenastats add' or 'arenastats import' to record battles.")
		return nil
	}

	t := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	t.Header("SEASON", "ATTACKER", "DEFENDER", "W", "L", "WIN%", "WILSON", "LAST SEEN")
	for _, r := range rows {
		t.Append(
			fmt.Sprintf("%d", r.Season),
			joinTeam(r.AtkTeam),
			joinTeam(r.DefTeam),
			fmt.Sprintf("%d", r.Wins),
			fmt.Sprintf("%d", r.Losses),
			fmt.Sprintf("%.1f%%", 100*r.WinRate),
			fmt.Sprintf("%.3f", r.WilsonScore),
			time.Unix(r.LastSeen, 0).Format("2006-01-02"),
		)
	}
	t.Render()

	totalPages := (total + q.Limit - 1) / q.Limit
	fmt.Fprintf(os.Stdout, "\nPage %d of %d (%d matchups)\n", q.Page, totalPages, total)
	return nil
}

func joinTeam(team []int) string {
	parts := make([]string, len(team))
	for i, id := range team {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
