package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ares0516/greeter/common"
)

// Fetch requests path over a yamux stream to server and copies the body to w.
func Fetch(ctx context.Context, server, path string, w io.Writer, logger *logrus.Logger) error {
	session, err := common.DialMux(ctx, server, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	client := &http.Client{Transport: common.MuxTransport(session)}
	// Host 仅用于请求行, 实际连接走会话
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+server+path, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "greeter-client",
		Usage: "Fetch the greeting through a yamux session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "yamux endpoint of the greeter",
				Value: "127.0.0.1:3001",
			},
			&cli.StringFlag{
				Name:  "path",
				Value: "/",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{common.EnvLogLevel},
				Value:   "warn",
			},
		},
		Action: func(cCtx *cli.Context) error {
			logger, err := common.NewLogger(os.Stderr, cCtx.String("log-level"))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cCtx.Context, cCtx.Duration("timeout"))
			defer cancel()
			if err := Fetch(ctx, cCtx.String("server"), cCtx.String("path"), os.Stdout, logger); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout)
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
