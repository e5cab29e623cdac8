// Package cmd wires the multirec CLI: a single root command that takes
// a device-config path and an output directory, then runs the capture
// session until the operator quits.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rom9/multirec/internal/audiocore/bootstrap"
	"github.com/rom9/multirec/internal/audiocore/orchestrator"
	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/audiocore/ui"
	"github.com/rom9/multirec/internal/logging"
)

// Settings holds the ambient configuration every run needs. Values come
// from the CLI flags; the flags are also registered with viper, but no
// setting is read back from viper.
type Settings struct {
	ConfigPath string
	OutDir     string
	Debug      bool
}

// RootCommand builds the "multirec" root command.
func RootCommand(settings *Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "multirec <out-dir>",
		Short: "Multi-device synchronized audio capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.OutDir = args[0]
			return run(cmd.Context(), settings)
		},
	}

	setupFlags(rootCmd, settings)
	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *Settings) {
	rootCmd.PersistentFlags().StringVarP(&settings.ConfigPath, "config", "c", "multirec.rc",
		"Path to the device config file")
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"),
		"Enable debug logging")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

// run drives one end-to-end session: bootstrap the devices, start the
// state machine, and read keys until SIGINT or an operator quit.
func run(parent context.Context, settings *Settings) error {
	logging.Init()
	if settings.Debug {
		logging.SetLevel(logging.LevelTrace)
	}

	sessionLogPath := filepath.Join(settings.OutDir, "multirec.log")
	log, closeLog, err := logging.NewFileLogger(sessionLogPath, "multirec", logging.RotationDaily)
	if err != nil {
		return fmt.Errorf("session log: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	sess, err := bootstrap.Bootstrap(settings.ConfigPath, settings.OutDir, log)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := bootstrap.Close(sess); err != nil {
			log.Error("cleanup failed", "error", err)
		}
	}()

	sm := orchestrator.New(sess, log)
	if err := sm.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	smErrCh := make(chan error, 1)
	go func() { smErrCh <- sm.Run(ctx) }()

	keys, err := ui.OpenKeyReader()
	if err != nil {
		log.Warn("no controlling terminal, press Ctrl-C to stop", "error", err)
		return <-smErrCh
	}
	defer keys.Close()

	go readKeys(ctx, keys, sess, log)

	return <-smErrCh
}

// readKeys feeds operator keystrokes into the session's request channel
// until ctx is cancelled.
func readKeys(ctx context.Context, keys *ui.KeyReader, sess *session.Session, log *slog.Logger) {
	for {
		req, err := keys.Next()
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case sess.RequestCh <- req:
		default:
		}
		if log != nil {
			log.Info("operator request", "request", req)
		}
	}
}
