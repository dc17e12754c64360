// Command retrieve searches a store for a product term and saves the
// listing cards it finds.
//
//	retrieve <base_url> <search_term...>
//
// On success the artifact path is printed to stdout. Exit status 1 means
// bad arguments or that every strategy failed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/use-agent/shelfscout/app"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/logging"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/site"
)

const usage = "usage: retrieve <base_url> <search_term>"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
	baseURL, term := args[0], strings.Join(args[1:], " ")

	cfg := config.Load()
	logging.Init(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	sc, err := site.Resolve(baseURL, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		return 1
	}

	scr, err := app.NewScraper(cfg)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("retrieval started", "site", sc.Name, "home", sc.HomeURL, "term", sc.SearchTerm)
	res, err := scr.Run(ctx, sc)
	if err != nil {
		slog.Error("retrieval failed", "code", models.CodeOf(err), "error", err)
		return 1
	}

	slog.Info("retrieval finished", "strategy", res.Strategy, "cards", res.Cards)
	fmt.Println(res.Path)
	return 0
}
