// Command refinecli tries the refinement prompt from a terminal. Each line
// typed is sent as dictated text and the resulting document is printed.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"thoughtbox/internal/config"
	"thoughtbox/internal/service/refine"

	"github.com/joho/godotenv"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
)

func main() {
	provider := flag.String("provider", "", "LLM provider (defaults to REFINE_PROVIDER)")
	model := flag.String("model", "", "Model (defaults to REFINE_MODEL, then the prompt config)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if *provider == "" {
		*provider = cfg.RefineProvider
	}
	if *model == "" {
		*model = cfg.RefineModel
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	prompts, err := refine.LoadPrompts()
	if err != nil {
		fail("load prompts: %v", err)
	}
	if *model == "" {
		if *model, err = prompts.Model(*provider); err != nil {
			fail("%v", err)
		}
	}
	gen, err := refine.NewProvider(*provider, cfg.AnthropicAPIKey)
	if err != nil {
		fail("%v", err)
	}
	refiner := refine.NewRefiner(gen, *model, prompts, logger)

	fmt.Printf("%srefining with %s/%s; empty line quits%s\n", colorGray, *provider, *model, colorReset)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		text := strings.TrimSpace(in.Text())
		if text == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		start := time.Now()
		doc, err := refiner.Refine(ctx, text)
		cancel()
		if err != nil {
			fmt.Printf("%s%v%s\n", colorRed, err, colorReset)
			continue
		}

		out, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Printf("%s%s%s\n%s%d blocks in %s%s\n", colorGreen, out, colorReset, colorGray, len(doc), time.Since(start).Round(time.Millisecond), colorReset)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+format+colorReset+"\n", args...)
	os.Exit(1)
}
