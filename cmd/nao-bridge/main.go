// nao-bridge exposes a NAO robot as a REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/davesnowdon/go-nao-bridge/internal/config"
	"github.com/davesnowdon/go-nao-bridge/internal/log"
	"github.com/davesnowdon/go-nao-bridge/pkg/command"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
	"github.com/davesnowdon/go-nao-bridge/pkg/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "nao-bridge",
		Short:         "REST bridge for NAO robots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nao-bridge %s (%s)\n", version, commit)
		},
	}

	root.AddCommand(serve, versionCmd)
	return root
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Init(cfg.LogLevel)
	logger := log.With("component", "main")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dial := func(ctx context.Context) (nao.Conn, error) {
		return nao.Dial(ctx, cfg.RobotAddr(), cfg.CommandTimeout)
	}
	sess := session.NewManager(cfg.RobotAddr(), dial)
	defer sess.Close()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	err := sess.Connect(connectCtx)
	cancel()
	if err != nil {
		// The bridge still serves /status and operations when the robot
		// is down; commands fail with ROBOT_NOT_CONNECTED until it
		// reconnects.
		logger.Warn("robot connection failed, starting disconnected",
			"robot", cfg.RobotAddr(), "error", err)
	} else {
		logger.Info("connected to robot", "robot", cfg.RobotAddr())
	}

	tracker := operation.NewTracker(cfg.OperationRetention)
	defer tracker.Close()

	dispatcher := command.NewDispatcher(sess, tracker, cfg.MoveDuration)
	server := web.NewServer(cfg.ListenAddr, dispatcher, sess, tracker)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.ListenAddr, "version", version)
		return server.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
