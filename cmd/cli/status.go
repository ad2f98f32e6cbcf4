/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resonant/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("runner", "r", "localhost:5555", "Runner to talk to")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Status command to list pooled tasks.",
	Long: `resonant status command.

The status command allows a user to get the current task pool of a runner.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, err := cmd.Flags().GetString("runner")
		if err != nil {
			log.Fatal(err)
		}

		url := fmt.Sprintf("http://%s/tasks", addr)
		resp, err := http.Get(url)
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}
		var tasks []scheduler.TaskInfo
		if err := json.Unmarshal(body, &tasks); err != nil {
			log.Fatal(err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 5, ' ', tabwriter.TabIndent)
		fmt.Fprintln(w, "ID\tPRIORITY\tSTABILITY\tFITNESS\tCOMPONENTS\t")
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%.3f\t%.3f\t%d\t\n", t.ID, t.Priority, t.Stability, t.Fitness, t.Components)
		}
		w.Flush()
	},
}
