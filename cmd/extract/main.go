// Command extract turns the cards of a saved artifact into structured
// product records.
//
//	extract <html_filename> <card_css_class>
//
// The artifact is read from the HTML output directory and the records are
// written to <data dir>/<basename>.json, whose path is printed to stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/shelfscout/app"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/logging"
	"github.com/use-agent/shelfscout/models"
)

const usage = "usage: extract <html_filename> <card_css_class>"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
	artifact, class := args[0], args[1]

	cfg := config.Load()
	logging.Init(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}
	if cfg.LLM.APIKey == "" {
		slog.Warn("no LLM API key configured")
	}

	stage, release := app.NewStage(cfg)
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := stage.Run(ctx, artifact, class)
	if err != nil {
		if models.HasCode(err, models.ErrCodeNoCards) {
			fmt.Fprintf(os.Stderr, "no elements with class %q in %s\n", class, artifact)
		}
		slog.Error("extraction failed", "code", models.CodeOf(err), "error", err)
		return 1
	}

	slog.Info("records written",
		"path", out.Path,
		"cards", out.Cards,
		"records", len(out.Report.Records),
		"failed", len(out.Report.Failures),
	)
	fmt.Println(out.Path)
	return 0
}
