package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriGate/internal/app"
	"github.com/Rorical/RoriGate/internal/models"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List tool calls awaiting approval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(env *app.Env) error {
			st, err := env.Client.FetchToolCalls(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), st.Pending, true)
			return nil
		})
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the execution log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(env *app.Env) error {
			st, err := env.Client.FetchToolCalls(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), st.Log, false)
			return nil
		})
	},
}

func withEnv(fn func(env *app.Env) error) error {
	env, err := app.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

func statusColor(s models.Status) func(format string, a ...interface{}) string {
	switch s {
	case models.Pending:
		return color.YellowString
	case models.Denied:
		return color.RedString
	}
	return color.GreenString
}

// printRecords writes one row per record. withArgs adds the named
// arguments; the log view shows results instead.
func printRecords(w io.Writer, recs []models.ToolCallRecord, withArgs bool) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "Nothing to show.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withArgs {
		fmt.Fprintln(tw, "ID\tTOOL\tRENDERER\tARGS")
	} else {
		fmt.Fprintln(tw, "ID\tTOOL\tSTATUS\tRESULT")
	}
	for _, rec := range recs {
		if withArgs {
			args, _ := json.Marshal(rec.NamedArgs)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.ToolName, rec.Renderer, args)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.ToolName, statusColor(rec.Status)("%s", rec.Status), rec.Result)
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(logCmd)
}
