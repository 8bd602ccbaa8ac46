package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kfcemployee/staticd/internal/connserver"
	"github.com/kfcemployee/staticd/internal/filecache"
	"github.com/kfcemployee/staticd/internal/obslog"
)

const defaultPort = 3000

func main() {
	app := &cli.App{
		Name:  "staticd",
		Usage: "serve static files over HTTP/1.1",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   defaultPort,
				EnvVars: []string{"PORT"},
				Usage:   "TCP port to listen on",
			},
			&cli.IntFlag{
				Name:  "max-cache-entries",
				Value: filecache.DefaultConfig().MaxEntries,
				Usage: "maximum number of cached files",
			},
			&cli.Int64Flag{
				Name:  "max-cache-size",
				Value: filecache.DefaultConfig().MaxCacheSize,
				Usage: "maximum total bytes held in the cache",
			},
			&cli.Int64Flag{
				Name:  "max-cached-file-size",
				Value: filecache.DefaultConfig().MaxCachedFileSize,
				Usage: "largest single file that will be retained in the cache",
			},
			&cli.DurationFlag{
				Name:  "entry-ttl",
				Value: filecache.DefaultConfig().EntryLifetime,
				Usage: "how long a cached entry is served before being re-read",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn, or error",
			},
		},
		Args:      true,
		ArgsUsage: "[root directory]",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	root := "public"
	if c.Args().Present() {
		root = c.Args().First()
	}

	port := c.Int("port")
	if port <= 0 || port > 65535 {
		fmt.Fprintf(os.Stderr, "invalid port %d, falling back to %d\n", port, defaultPort)
		port = defaultPort
	}

	logger := obslog.New(os.Stderr, obslog.ParseLevel(c.String("log-level")))

	cfg := filecache.Config{
		MaxEntries:        c.Int("max-cache-entries"),
		MaxCacheSize:      c.Int64("max-cache-size"),
		MaxCachedFileSize: c.Int64("max-cached-file-size"),
		EntryLifetime:     c.Duration("entry-ttl"),
	}

	cache, err := filecache.New(root, cfg, logger)
	if err != nil {
		return fmt.Errorf("staticd: %w", err)
	}

	srv, err := connserver.Listen(fmt.Sprintf(":%d", port), cache, logger)
	if err != nil {
		return fmt.Errorf("staticd: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.Close()
	}()

	logger.Info("listening", slog.String("root", cache.Root()), slog.Int("port", port))
	if err := srv.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("staticd: %w", err)
	}
	return nil
}
