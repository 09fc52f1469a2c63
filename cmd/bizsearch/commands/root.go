// Package commands implements the bizsearch command line tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bizsearch/internal/config"
	"github.com/stwalsh4118/bizsearch/internal/logger"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	engine          string
	logLevel        string
	jsonOutput      bool
	includeInactive bool
}

// NewRootCmd builds the command tree. Output goes to the command's out
// writer; logs go to stderr.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "bizsearch",
		Short:         "bizsearch looks up Florida business registrations on Sunbiz.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.engine, "engine", "", "browsing engine to crawl with (rod or http); overrides CRAWLER_ENGINE")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level written to stderr")
	flags.BoolVar(&g.jsonOutput, "json", false, "print results as JSON instead of a table")
	flags.BoolVar(&g.includeInactive, "include-inactive", false, "visit inactive registrations too")

	root.AddCommand(
		newCrawlCmd(g),
		newLookupCmd(g),
		newMigrateCmd(g),
	)
	return root
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// config reads the environment and applies flag overrides.
func (g *globals) config() *config.Config {
	cfg := config.Read()
	if g.engine != "" {
		cfg.Crawler.Engine = g.engine
	}
	if g.includeInactive {
		cfg.Crawler.IncludeInactive = true
	}
	return cfg
}

func (g *globals) logger() *logger.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return logger.NewWithWriter(console, logger.ParseLevel(g.logLevel, zerolog.WarnLevel))
}

func (g *globals) printer(w io.Writer) printer {
	if g.jsonOutput {
		return jsonPrinter{w: w}
	}
	return tablePrinter{w: w}
}
