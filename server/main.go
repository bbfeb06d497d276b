package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ares0516/greeter/common"
)

const shutdownTimeout = 5 * time.Second

func newApp() *cli.App {
	return &cli.App{
		Name:  "greeter",
		Usage: "Serve a fixed HTML greeting on every request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "port",
				Aliases:     []string{"p"},
				Usage:       "TCP port to listen on",
				EnvVars:     []string{common.EnvPort},
				DefaultText: "3000",
			},
			&cli.StringFlag{
				Name:    "mux-port",
				Usage:   "also serve over yamux streams on this port (disabled when empty)",
				EnvVars: []string{common.EnvMuxPort},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn, error",
				EnvVars: []string{common.EnvLogLevel},
				Value:   common.DefaultLogLevel,
			},
		},
		Action: run,
	}
}

func configFromFlags(cCtx *cli.Context) (common.Config, error) {
	port, err := common.ResolvePort(cCtx.String("port"))
	if err != nil {
		return common.Config{}, err
	}
	muxPort, err := common.ResolveMuxPort(cCtx.String("mux-port"))
	if err != nil {
		return common.Config{}, err
	}
	// LOG_LEVEL= 会覆盖默认值
	level := cCtx.String("log-level")
	if level == "" {
		level = common.DefaultLogLevel
	}
	return common.Config{
		Port:     port,
		MuxPort:  muxPort,
		LogLevel: level,
	}, nil
}

func run(cCtx *cli.Context) error {
	cfg, err := configFromFlags(cCtx)
	if err != nil {
		return err
	}

	logger, err := common.NewLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	srv := common.NewServer(cfg, logger)
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("server receive a signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func main() {
	// .env 可选, 已有环境变量优先
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("load .env failed")
	}

	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
