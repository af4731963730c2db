package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/checker"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/client"
	"github.com/bdrydyk/homebridge-securitysystem/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides server.grpc_addr.
	serverAddress string
	// retry repeats calls while the daemon is unreachable.
	retry bool
	// pollInterval sets how often watch polls the state.
	pollInterval time.Duration
	// exitOnTriggered stops watch once the alarm sounds.
	exitOnTriggered bool

	// rootCmd represents the base command for controlling the security system.
	rootCmd = &cobra.Command{
		Use:   "securityctl",
		Short: "Control a running security system.",
		Long: `Reads and changes the state of a running security system over gRPC.

The daemon address is taken from server.grpc_addr in the configuration file
unless --server is given. Every call carries the local user and hostname,
which the daemon logs. The resulting state is printed on success.`,
		SilenceUsage: true,
	}
)

// Execute runs the securityctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run performs action and prints the resulting state.
func run(cmd *cobra.Command, action client.Action) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	snap, err := client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Retry:         retry,
	}, action)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), client.FormatState(snap))

	return nil
}

// watch prints every state change until interrupted.
func watch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return checker.Run(ctx, &checker.Options{
		ConfigPath:      cfgPath,
		ServerAddress:   serverAddress,
		PollInterval:    pollInterval,
		ExitOnTriggered: exitOnTriggered,
		Output:          cmd.OutOrStdout(),
	})
}

// parseSwitch converts an on/off argument.
func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", arg)
	}
}

// switchCommand builds a command taking a single on/off argument.
func switchCommand(use, short string, action func(bool) client.Action) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <on|off>",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseSwitch(args[0])
			if err != nil {
				return err
			}

			return run(cmd, action(value))
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "daemon address, overrides server.grpc_addr")
	flags.BoolVarP(&retry, "retry", "r", false, "retry until the daemon is reachable")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every state change until interrupted.",
		Long: `Polls the daemon and prints a timestamped line whenever the state changes.

With --exit-on-triggered the command exits with a non-zero status as soon as
the alarm sounds, so it can guard a shell script.`,
		Args: cobra.NoArgs,
		RunE: watch,
	}
	watchCmd.Flags().DurationVarP(&pollInterval, "interval", "i", checker.DefaultPollInterval, "polling interval")
	watchCmd.Flags().BoolVar(&exitOnTriggered, "exit-on-triggered", false, "exit with an error once the alarm sounds")

	rootCmd.AddCommand(
		watchCmd,
		&cobra.Command{
			Use:   "state",
			Short: "Print the current state.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, client.GetState())
			},
		},
		&cobra.Command{
			Use:       "mode <home|away|night|off>",
			Short:     "Request a target mode.",
			Long:      "Requests a target mode. Arming modes honour the arm delay when delay arming is on.",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"home", "away", "night", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, client.SetMode(args[0]))
			},
		},
		&cobra.Command{
			Use:   "trigger",
			Short: "Sound the alarm immediately.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, client.Trigger())
			},
		},
		switchCommand("delay-arming", "Toggle the arm delay.", client.SetDelayArming),
		switchCommand("siren", "Write the siren switch.", client.SetSiren),
		switchCommand("sensor", "Report a sensor event.", client.ReportSensor),
	)
}
