package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetHistory bool
	resetFiles   bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored state (session history, exported files)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		// If no flags are set, default to clearing EVERYTHING
		if !resetHistory && !resetFiles {
			resetHistory = true
			resetFiles = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetHistory {
			if confirm(reader, "⚠️  Are you sure you want to DROP all session history?") {
				if err := connectDB(cmd.Context()); err != nil {
					utils.ShowError("Cannot reach database", err, nil)
					return err
				}
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.ShowError("Failed to reset database", err, nil)
					return err
				}
			}
		}

		if resetFiles {
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete everything under %s/?", config.OutputDir)) {
				fmt.Println("🗑️  Clearing Output Files...")
				removeDir(config.OutputDir)
			}
		}

		fmt.Println("✨ Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetHistory, "history", false, "Drop recorded session history")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Delete exported videos and images")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
