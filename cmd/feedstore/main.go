// ABOUTME: Entry point for the feedstore command line tool
// ABOUTME: Inserts, renders and tidies feed items in a local or external store

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/2389/feedstore/internal/config"
	"github.com/2389/feedstore/internal/feedstore"
	"github.com/2389/feedstore/internal/kv"
	"github.com/2389/feedstore/internal/sqlbackend"
)

// Version is set at build time.
var version = "dev"

const banner = `
  __               _     _
 / _| ___  ___  __| |___| |_ ___  _ __ ___
| |_ / _ \/ _ \/ _' / __| __/ _ \| '__/ _ \
|  _|  __/  __/ (_| \__ \ || (_) | | |  __/
|_|  \___|\___|\__,_|___/\__\___/|_|  \___|
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "feedstore",
		Usage:   "Store feed items and render them as feed payloads",
		Version: version,
		Description: `Keeps feed items per tag in a local store file, applies the
		configured capacity and expiry rules, and prints the visible items of a
		tag as <item> blocks ready to embed in a feed document.

		Tags can be served by an external SQLite store instead with --external.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (YAML, or TOML with a .toml extension)",
				EnvVars: []string{config.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "store file, overrides store.file",
			},
		},
		Commands: []*cli.Command{
			insertCmd(),
			showCmd(),
			tidyCmd(),
			checkCmd(),
		},
		Action: func(c *cli.Context) error {
			color.New(color.FgCyan).Fprint(c.App.ErrWriter, banner)
			color.New(color.FgHiBlack).Fprintf(c.App.ErrWriter, "    version: %s\n\n", version)
			return cli.ShowAppHelp(c)
		},
	}
}

var externalFlag = &cli.StringFlag{
	Name:  "external",
	Usage: "serve the tag from an external SQLite store at this path",
}

func insertCmd() *cli.Command {
	return &cli.Command{
		Name:  "insert",
		Usage: "Insert an item under a tag",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "link"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
			&cli.StringFlag{Name: "creator"},
			&cli.Int64Flag{Name: "created-at", Usage: "creation time in epoch seconds (default now)"},
			externalFlag,
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *feedstore.Store, tag feedstore.Tag) error {
				opts := []feedstore.InsertOption{feedstore.WithCreator(c.String("creator"))}
				if c.IsSet("created-at") {
					opts = append(opts, feedstore.WithCreatedAt(c.Int64("created-at")))
				}

				if err := s.Insert(ctx, tag, c.String("title"), c.String("link"), c.String("description"), opts...); err != nil {
					return err
				}

				green := color.New(color.FgGreen)
				green.Fprint(c.App.ErrWriter, "✓ ")
				fmt.Fprintf(c.App.ErrWriter, "inserted into %s\n", tag)
				return nil
			})
		},
	}
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the rendered items of a tag",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Required: true},
			externalFlag,
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *feedstore.Store, tag feedstore.Tag) error {
				payload, err := s.Retrieve(ctx, tag)
				if err != nil {
					return err
				}
				_, err = c.App.Writer.Write(payload)
				return err
			})
		},
	}
}

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Delete expired items from the store file",
		Description: `Removes items older than the configured expiry window.

		Only acts when the store is configured with expire: days and
		remove_expired: true. Expired items are hidden from show either way.`,
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *feedstore.Store, _ feedstore.Tag) error {
				n, err := s.Tidy(ctx)
				if err != nil {
					return err
				}
				green := color.New(color.FgGreen)
				green.Fprint(c.App.ErrWriter, "✓ ")
				fmt.Fprintf(c.App.ErrWriter, "removed %d expired items\n", n)
				return nil
			})
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report whether a file can be opened as a store",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("check takes exactly one FILE argument")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			path := c.Args().First()
			if !kv.IsValidFile(cfg.Driver(), path) {
				color.New(color.FgRed).Fprint(c.App.ErrWriter, "✗ ")
				fmt.Fprintf(c.App.ErrWriter, "%s is not a %s store file\n", path, cfg.Driver())
				return fmt.Errorf("%s: %w", path, feedstore.ErrNotAStoreFile)
			}
			color.New(color.FgGreen).Fprint(c.App.ErrWriter, "✓ ")
			fmt.Fprintf(c.App.ErrWriter, "%s is usable as a %s store\n", path, cfg.Driver())
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(config.Path())
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f := c.String("file"); f != "" {
		cfg.Store.File = f
	}
	return cfg, nil
}

// withStore runs fn against a started store. Commands with --external get a
// delegated tag and leave the local file untouched; the rest open the local
// store from config.
func withStore(c *cli.Context, fn func(ctx context.Context, s *feedstore.Store, tag feedstore.Tag) error) (err error) {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging, c.App.ErrWriter)

	storeOpts := []feedstore.Option{
		feedstore.WithLogger(logger),
		feedstore.WithDriver(cfg.Driver()),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		storeOpts = append(storeOpts, feedstore.WithMetrics(feedstore.NewMetrics(reg)))
	}

	s := feedstore.New(storeOpts...)
	defer s.Stop()

	if reg != nil {
		defer func() {
			if derr := dumpMetrics(c.App.ErrWriter, reg); derr != nil && err == nil {
				err = derr
			}
		}()
	}

	tag := feedstore.LocalTag(c.String("tag"))

	if ext := c.String("external"); ext != "" {
		backend := sqlbackend.New(logger)
		if err := s.Open(ctx, feedstore.Options{Backend: backend, File: ext}); err != nil {
			return err
		}
		defer s.CloseBackend(ctx, backend, tag.Name)
		tag = feedstore.DelegatedTag(backend, tag.Name)
		return fn(ctx, s, tag)
	}

	opts, err := feedstore.ParseOptions(cfg.StoreOptions())
	if err != nil {
		return err
	}
	if err := s.Open(ctx, opts); err != nil {
		return err
	}
	defer s.Close(ctx)

	logger.Debug("store ready", "file", opts.File, "driver", cfg.Driver())
	return fn(ctx, s, tag)
}
