package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sessions, or the emotion tally of one session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := connectDB(cmd.Context()); err != nil {
			utils.ShowError("Cannot reach database", err, nil,
				"PostgreSQL is running and reachable",
				"--db or POSTGRES_* variables are correct")
			return err
		}
		if historySession != "" {
			return runSessionTally(cmd, historySession)
		}
		return runHistory(cmd)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of sessions to list")
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "Show the emotion tally for one session ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command) error {
	sessions, err := DB.ListSessions(cmd.Context(), historyLimit)
	if err != nil {
		utils.ShowError("Failed to list sessions", err, nil)
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet. Run with --record to keep history.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tPATH\tFRAMES\tDOMINANT\tSTARTED")
	fmt.Fprintln(w, "--\t------\t----\t------\t--------\t-------")

	for _, s := range sessions {
		dominant := s.Dominant
		if dominant == "" {
			dominant = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", s.ID, s.SourceKind, s.SourcePath, s.FrameCount, dominant, s.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSessionTally(cmd *cobra.Command, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	tally, err := DB.EmotionTally(cmd.Context(), id)
	if err != nil {
		utils.ShowError("Failed to load session", err, nil)
		return err
	}
	if len(tally) == 0 {
		fmt.Println("No faces recorded for this session.")
		return nil
	}
	writeTally(os.Stdout, tally)
	return nil
}
