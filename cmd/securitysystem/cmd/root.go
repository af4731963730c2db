package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/server"
	"github.com/bdrydyk/homebridge-securitysystem/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddr overrides the HTTP listen address.
	httpAddr string

	// rootCmd represents the base command for running the security system.
	rootCmd = &cobra.Command{
		Use:   "securitysystem [grpc-listen-address]",
		Short: "Run the security system controller.",
		Long: `Starts the security system controller: the mode state machine, its timers and
the configured notifiers (audio, commands, webhooks, Lua script).

Control surfaces are enabled from the configuration file: the gRPC API used by
securityctl, the HTTP mode endpoints with the websocket event stream, and the
Home Assistant MQTT bridge. Only the port of server.grpc_addr is used for
listening; a listen address argument overrides it (e.g., :9090, 0.0.0.0:8080).
With save_state the state is restored at start-up and saved on every change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var grpcAddr string
			if len(args) > 0 {
				grpcAddr = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath: configPath,
				GRPCAddr:   grpcAddr,
				HTTPAddr:   httpAddr,
			})
		},
	}
)

// check validates the configuration file and summarizes it.
func check(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	storage := "disabled"
	if cfg.SaveState {
		storage = cfg.Storage.Driver + ":" + cfg.Storage.Path
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: configuration OK (default mode %s, state storage %s, mqtt %t)\n",
		configPath, cfg.DefaultMode, storage, cfg.MQTT.Enabled)

	return nil
}

// Execute runs the securitysystem CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address, overrides server.http_addr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file and exit.",
		Args:  cobra.NoArgs,
		RunE:  check,
	})
}
