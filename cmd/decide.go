package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriGate/internal/app"
	"github.com/Rorical/RoriGate/internal/models"
)

var (
	approveSets  []string
	approveBatch bool
	denyBatch    bool
	questionID   string
)

var approveCmd = &cobra.Command{
	Use:   "approve <id> [id...]",
	Short: "Approve a pending tool call",
	Long: `Approve a pending tool call, optionally overriding named arguments with
--set name=value (value is read as JSON, falling back to a plain string).
With --batch every id given is approved in one request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !approveBatch && len(args) > 1 {
			return fmt.Errorf("approving several ids needs --batch")
		}
		if approveBatch && len(approveSets) > 0 {
			return fmt.Errorf("--set cannot be combined with --batch")
		}
		overrides, err := parseOverrides(approveSets)
		if err != nil {
			return err
		}

		return withEnv(func(env *app.Env) error {
			d := env.Dispatcher()
			defer d.Stop()
			if approveBatch {
				err = d.BatchApprove(cmd.Context(), args...)
			} else {
				err = d.Approve(cmd.Context(), args[0], overrides)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Approved %d tool call(s)", len(args)))
			return nil
		})
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <id> [id...]",
	Short: "Deny a pending tool call",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !denyBatch && len(args) > 1 {
			return fmt.Errorf("denying several ids needs --batch")
		}
		return withEnv(func(env *app.Env) error {
			d := env.Dispatcher()
			defer d.Stop()
			var err error
			if denyBatch {
				err = d.BatchDeny(cmd.Context(), args...)
			} else {
				err = d.Deny(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("Denied %d tool call(s)", len(args)))
			return nil
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <text>",
	Short: "Reply to the agent in the chat thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(env *app.Env) error {
			if err := env.Answer(cmd.Context(), args[0], questionID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Answer sent"))
			return nil
		})
	},
}

func parseOverrides(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	overlay := models.NewOverlay("")
	for _, s := range sets {
		name, value, err := models.ParseAssignment(s)
		if err != nil {
			return nil, err
		}
		overlay.Set(name, value)
	}
	return overlay.Snapshot(), nil
}

func init() {
	approveCmd.Flags().StringArrayVar(&approveSets, "set", nil, "override a named argument (name=value, repeatable)")
	approveCmd.Flags().BoolVar(&approveBatch, "batch", false, "approve every id in one request")
	denyCmd.Flags().BoolVar(&denyBatch, "batch", false, "deny every id in one request")
	answerCmd.Flags().StringVar(&questionID, "question", "", "id of the question being answered")

	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(answerCmd)
}
