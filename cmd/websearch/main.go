package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/searchbridge/searchbridge/pkg/retry"
	"github.com/searchbridge/searchbridge/pkg/search"
)

func main() {
	configPath := flag.String("config", "", "Path to a yaml config file (optional, environment is used otherwise)")
	provider := flag.String("provider", "", "Search provider (perplexity, gemini, openai, openrouter, modelbox)")
	model := flag.String("model", "", "Model override for the chosen provider")
	detailed := flag.Bool("detailed", false, "Request a longer, more thorough answer")
	noCache := flag.Bool("no-cache", false, "Skip the result cache for this query")
	maxTokens := flag.Int("max-tokens", 0, "Completion token budget (0 = provider default)")
	timeout := flag.Duration("timeout", 0, "Client-side timeout for a single provider call (0 = default)")
	retries := flag.Int("retries", 1, "Total attempts for transient failures")
	jsonOutput := flag.Bool("json", false, "Print the full result as JSON")
	clearCache := flag.Bool("clear-cache", false, "Empty the result cache and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	engine := search.NewEngine(cfg, log)

	if *clearCache {
		if err := engine.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared")
		return
	}

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: websearch [flags] <query>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	req := search.Request{
		Query:     query,
		Provider:  *provider,
		Model:     *model,
		MaxTokens: *maxTokens,
		Detailed:  *detailed,
		Timeout:   *timeout,
		NoCache:   *noCache,
	}

	policy := retry.Policy{Attempts: *retries, Retryable: search.IsFallbackEligible}
	result, err := retry.Do(context.Background(), policy, func(ctx context.Context) (*search.Result, error) {
		return engine.Execute(ctx, req)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	printText(result)
}

func loadConfig(path string) (*search.Config, error) {
	if path == "" {
		return search.ConfigFromEnv(), nil
	}
	cfg, err := search.Load(path)
	if err != nil {
		return nil, err
	}
	return search.ApplyEnvDefaults(cfg), nil
}

func printText(result *search.Result) {
	fmt.Println(result.Content)
	if len(result.Metadata.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, source := range result.Metadata.Sources {
			if source.Title != "" {
				fmt.Printf("  %d. %s (%s)\n", i+1, source.Title, source.URL)
			} else {
				fmt.Printf("  %d. %s\n", i+1, source.URL)
			}
		}
	}
	cached := ""
	if result.Metadata.Cached {
		cached = ", cached"
	}
	fmt.Printf("\n[%s/%s%s, %d tokens]\n",
		result.Metadata.Provider, result.Metadata.Model, cached,
		result.Metadata.TokenUsage.TotalTokens)
}
