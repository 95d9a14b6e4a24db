// Command pipeline runs one batch through the analysis pipeline and prints
// the batch result as JSON. Articles come from a JSON file, stdin or a feed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/app"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
	"github.com/delarge95/ai-news-aggregator/internal/sources"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inputPath  = flag.String("input", "", "JSON file with an array of raw articles, - for stdin")
		feedURL    = flag.String("feed", "", "RSS or Atom feed URL to fetch articles from")
		sourceType = flag.String("source-type", "", "source type recorded on every article")
		persist    = flag.Bool("persist", false, "persist analyzed articles to the configured store")
		limit      = flag.Int("limit", 0, "maximum number of feed items, 0 for all")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall deadline for the batch")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[news-ai] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	raw, err := loadArticles(ctx, *inputPath, *feedURL, *limit)
	if err != nil {
		logger.Printf("load articles: %v", err)
		return 2
	}
	if *sourceType == "" && *feedURL != "" {
		*sourceType = "rss"
	}

	analysisCache := app.NewAnalysisCache(ctx, cfg, logger)
	defer analysisCache.Close()
	orchestrator := app.NewOrchestrator(cfg, app.NewTextGenerator(cfg), analysisCache.Cache, logger)

	var session repository.Session
	if *persist {
		store := app.OpenStore(ctx, cfg, logger)
		defer store.Close()
		session, err = store.Sessions.NewSession(ctx)
		if err != nil {
			logger.Printf("open session: %v", err)
			return 1
		}
	}

	result := orchestrator.Run(ctx, raw, *sourceType, session)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Printf("encode result: %v", err)
		return 1
	}
	if result.State == domain.StateError {
		return 1
	}
	return 0
}

func loadArticles(ctx context.Context, inputPath, feedURL string, limit int) ([]domain.RawArticle, error) {
	switch {
	case inputPath != "" && feedURL != "":
		return nil, errors.New("use either -input or -feed, not both")
	case feedURL != "":
		return sources.NewFeedFetcher(0).Fetch(ctx, feedURL, limit)
	case inputPath == "":
		return nil, errors.New("one of -input or -feed is required")
	}

	var reader io.Reader = os.Stdin
	if inputPath != "-" {
		file, err := os.Open(inputPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		reader = file
	}

	var raw []domain.RawArticle
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", inputPath, err)
	}
	return raw, nil
}
