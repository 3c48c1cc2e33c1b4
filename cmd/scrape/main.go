// Command scrape runs a single scrape request and writes the event stream to
// stdout. Logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/app"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/scrape"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/stream"
)

func main() {
	cfgPath := flag.String("config", "", "Path to service configuration (defaults are used when empty)")
	search := flag.String("search", "", "Search term")
	page := flag.Int("page", 1, "Results page")
	size := flag.Int("size", 0, "Items per page (configured default when 0)")
	all := flag.Bool("all", false, "Walk every results page until an empty one")
	details := flag.Bool("details", false, "Fetch and summarize item descriptions")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.NewWithWriter(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseQuietly(logCloser)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := app.NewEngine(ctx, *cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	req := scrape.Request{
		SearchTerm:   *search,
		Page:         *page,
		PageSize:     *size,
		FetchAll:     *all,
		FetchDetails: *details,
	}
	if req.PageSize == 0 {
		req.PageSize = cfg.Marketplace.DefaultPageSize
	}

	if err := engine.Run(ctx, req, stream.NewSSEWriter(os.Stdout)); err != nil {
		var ve *scrape.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintf(os.Stderr, "%v\n", ve)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "scrape stopped with error: %v\n", err)
		os.Exit(1)
	}
}
