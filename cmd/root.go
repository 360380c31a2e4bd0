package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriGate/internal/app"
)

const logo = `
 ___          _  ___       _
| _ \___ _ _ (_)/ __|__ _ | |_ ___
|   / _ \ '_|| | (_ / _' ||  _/ -_)
|_|_\___/_|  |_|\___\__,_| \__\___|
`

var opts app.Options

var rootCmd = &cobra.Command{
	Use:   "rorigate",
	Short: "Human-in-the-loop approval dashboard for agent tool calls",
	Long: color.CyanString(logo) + `
RoriGate shows the tool calls an agent wants to run, lets you approve, edit or
deny them, and answers the agent's questions, all from the terminal.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context())
	},
}

func runDashboard(ctx context.Context) error {
	application, err := app.NewApplication(opts)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	return application.Start(ctx)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.Profile, "profile", "p", "", "profile to use instead of the active one")
	flags.StringVar(&opts.Server, "server", "", "approval server URL, overriding the profile")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	flags.StringVar(&opts.LogFile, "log-file", "", `log destination ("-" for stderr, default <config dir>/rorigate.log)`)

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}
