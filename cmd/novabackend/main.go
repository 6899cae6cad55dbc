package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"novashell/internal/bootstrap"
	"novashell/internal/config"
)

var Version = "0.0.0"

func newRootCmd() *cobra.Command {
	var (
		bridgeURL string
		greet     bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "novabackend",
		Short: "Reference assistant backend for the Nova shell.",
		Long: `Dials the shell's bridge and serves the assistant call surface:
listening, monitor flags, location and click cues. Flags are pushed to
the shell periodically so its toggle group stays in sync.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := bootstrap.BuildBackend()
			if err != nil {
				return err
			}
			if bridgeURL != "" {
				backend.Config.Bridge.URL = bridgeURL
			}
			if verbose {
				log.SetLevel(log.DebugLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithField("url", backend.Config.Bridge.URL).Info("Starting assistant backend")
			return backend.Run(ctx, greet)
		},
	}
	cmd.Flags().StringVarP(&bridgeURL, "url", "u", "", "bridge URL to dial (default from config)")
	cmd.Flags().BoolVarP(&greet, "greet", "g", true, "show the wake greeting on connect")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of novabackend",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "novabackend version: %s\n", Version)
		},
	}

	surfaceCmd := &cobra.Command{
		Use:   "surface",
		Short: "List the operations the backend exposes over the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := bootstrap.NewBackend(config.Config{}, nil, nil)
			if err != nil {
				return err
			}
			for _, op := range backend.Registry.Ops() {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:     %s\n", config.Path())
			fmt.Fprintf(out, "bridge url:      %s\n", cfg.Bridge.URL)
			fmt.Fprintf(out, "status push:     %s\n", cfg.Backend.StatusPushInterval)
			fmt.Fprintf(out, "listen window:   %s\n", cfg.Backend.ListenWindow)
			fmt.Fprintf(out, "player command:  %s\n", cfg.Audio.PlayerCommand)
			fmt.Fprintf(out, "click sound:     %s\n", cfg.Audio.ClickSoundPath)
			return nil
		},
	}

	cmd.AddCommand(versionCmd, surfaceCmd, configCmd)
	return cmd
}

func main() {
	cmd := newRootCmd()

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
