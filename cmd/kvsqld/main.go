// Command kvsqld runs the TCP server: one positional argument, the bind
// address, defaulting to 127.0.0.1:8080.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvsql/kvsql/kv"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/server"
)

const defaultDataPath = "kvsql.log"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kvsqld [bind-address]",
		Short: "run the SQL database's TCP server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "127.0.0.1:8080"
			if len(args) == 1 {
				addr = args[0]
			}
			return run(cmd.Context(), addr)
		},
		SilenceUsage: true,
	}
	return cmd
}

func run(ctx context.Context, addr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("kvsqld: building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	disk, err := kv.OpenDisk(defaultDataPath)
	if err != nil {
		return fmt.Errorf("kvsqld: opening storage at %s: %w", defaultDataPath, err)
	}
	defer func() {
		if err := disk.Close(); err != nil {
			zap.S().Errorw("closing storage", "error", err)
		}
	}()

	engine := mvcc.New(disk)
	srv := server.New(engine)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.S().Infow("starting kvsqld", "addr", addr, "data", defaultDataPath)
	if err := srv.ListenAndServe(ctx, addr); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
