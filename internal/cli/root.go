package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"qrshare/internal/app"
	"qrshare/internal/config"
	"qrshare/internal/logger"
	"qrshare/internal/version"
)

// ErrUsage marks a command line that does not name exactly one file.
var ErrUsage = errors.New("usage")

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitFatal = 1
	ExitUsage = 2
)

func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run parses args, serves until interrupted and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	prog := filepath.Base(os.Args[0])
	cmd := newRootCmd(prog, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		if err != ErrUsage {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		fmt.Fprintf(stderr, "Usage: %s <file_path>\n", prog)
		return ExitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitFatal
	}
}

func newRootCmd(prog string, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           prog + " [flags] <file_path>",
		Short:         "Share one file on the local network behind a QR code",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrUsage
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	flags := config.BindFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flags, os.LookupEnv)
		if err != nil {
			return err
		}
		log := logger.New(logger.Config{Debug: cfg.Debug, Format: cfg.LogFormat, Writer: stderr})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = app.Run(ctx, app.Options{
			FilePath: args[0],
			Config:   cfg,
			Logger:   log,
			Stdout:   stdout,
		})
		if err != nil {
			return err
		}
		log.Info("server stopped")
		return nil
	}
	return cmd
}
