package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ml-career-pulse/backend/internal/app"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/pkg/config"
	appLogger "github.com/ml-career-pulse/backend/pkg/logger"
)

type output struct {
	Summary any              `json:"summary"`
	Items   []skills.RawItem `json:"items"`
}

func main() {
	itemType := flag.String("type", "paper", "item type: paper, repo, discussion or job")
	input := flag.String("input", "-", "YAML or JSON file with the items, - for stdin")
	outputPath := flag.String("output", "-", "file for the enriched items, - for stdout")
	flushCache := flag.Bool("flush-cache", false, "drop cached model responses before running")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout may carry the results, so logs go to stderr.
	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, "stderr"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	if err := run(cfg, skills.ItemType(*itemType), *input, *outputPath, *flushCache); err != nil {
		appLogger.Error("Enrichment failed", zap.Error(err))
		appLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, itemType skills.ItemType, inputPath, outputPath string, flushCache bool) error {
	if !itemType.Valid() {
		return fmt.Errorf("unknown item type %q", itemType)
	}

	raw, err := readInput(inputPath)
	if err != nil {
		return err
	}
	items, err := parseItems(raw)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flushCache {
		if a.Redis == nil {
			appLogger.Warn("Response cache not enabled, nothing to flush")
		} else {
			n, err := a.Redis.InvalidateResponses(ctx)
			if err != nil {
				return fmt.Errorf("failed to flush response cache: %w", err)
			}
			appLogger.Info("Response cache flushed", zap.Int("keys", n))
		}
	}

	enriched, summary, err := a.Service.Enrich(ctx, itemType, items)
	if err != nil {
		return err
	}

	return writeOutput(outputPath, output{Summary: summary, Items: enriched})
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// parseItems accepts either a bare list of items or a document with an
// "items" key. JSON input parses as YAML.
func parseItems(data []byte) ([]skills.RawItem, error) {
	var list []map[string]any
	if err := yaml.Unmarshal(data, &list); err == nil {
		return toRawItems(list), nil
	}

	var doc struct {
		Items []map[string]any `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return toRawItems(doc.Items), nil
}

func toRawItems(list []map[string]any) []skills.RawItem {
	items := make([]skills.RawItem, 0, len(list))
	for _, m := range list {
		items = append(items, skills.RawItem(m))
	}
	return items
}

func writeOutput(path string, out output) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
