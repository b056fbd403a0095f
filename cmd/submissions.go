package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/storage"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Review the pending contribution queue",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending submissions",
	Args:  cobra.NoArgs,
	RunE:  runSubmissionsList,
}

var submissionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending submission and merge its records",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmissionsApprove,
}

var submissionsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmissionsReject,
}

func init() {
	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsApproveCmd)
	submissionsCmd.AddCommand(submissionsRejectCmd)
}

func runSubmissionsList(cmd *cobra.Command, args []string) error {
	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	subs, err := engine.PendingSubmissions()
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stdout, "No pending submissions.")
		return nil
	}

	t := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	t.Header("ID", "SCOPE", "SEASON", "ATTACKER", "DEFENDER", "W", "L", "SUBMITTED")
	for _, s := range subs {
		t.Append(
			fmt.Sprintf("%d", s.ID),
			s.Scope,
			fmt.Sprintf("%d", s.Season),
			joinTeam(s.AtkTeam),
			joinTeam(s.DefTeam),
			fmt.Sprintf("%d", s.Wins),
			fmt.Sprintf("%d", s.Losses),
			time.Unix(s.CreatedAt, 0).Format("2006-01-02 15:04"),
		)
	}
	t.Render()
	return nil
}

func runSubmissionsApprove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid submission id %q", args[0])
	}

	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := engine.ApproveSubmission(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("submission %d not found", id)
		}
		return err
	}
	fmt.Fprintf(os.Stdout, "Submission %d approved and merged.\n", id)
	return nil
}

func runSubmissionsReject(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid submission id %q", args[0])
	}

	engine, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := engine.RejectSubmission(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("submission %d not found or already processed", id)
		}
		return err
	}
	fmt.Fprintf(os.Stdout, "Submission %d rejected.\n", id)
	return nil
}
