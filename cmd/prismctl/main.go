package main

// Run one pipeline from the command line and print its events:
//   go run ./cmd/prismctl -product 炭酸水 -category 飲料 -challenges "若年層の認知が低い" -depth standard

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"prism-backend/internal/bootstrap"
	"prism-backend/internal/extract"
	"prism-backend/internal/llm"
	"prism-backend/internal/llm/gemini"
	"prism-backend/internal/pipeline"
	"prism-backend/internal/prism"
	"prism-backend/internal/shared/config"
	"prism-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitErr(fmt.Sprintf("config: %v", err))
	}

	product := flag.String("product", "", "Product name")
	category := flag.String("category", "", "Product category")
	challenges := flag.String("challenges", "", "Challenges or characteristics")
	depth := flag.String("depth", string(prism.DepthStandard), "Research depth: standard, deep, manual or agent")
	model := flag.String("model", string(prism.ModelAccurate), "Model tier: fast or accurate")
	manualPath := flag.String("manual", "", "Research file for manual depth (pdf, docx or text)")
	outPath := flag.String("out", "", "Path to write the final result JSON (optional)")
	debug := flag.Bool("debug", cfg.DebugEvents, "Emit debug_log events")
	flag.Parse()

	_ = telemetry.Setup("dev", "warn")
	defer telemetry.Sync()

	in := prism.AnalysisInput{
		ProductName:   *product,
		Category:      *category,
		Challenges:    *challenges,
		ResearchDepth: prism.ResearchDepth(*depth),
		Model:         prism.ModelTier(*model),
	}
	if strings.TrimSpace(*manualPath) != "" {
		data, err := os.ReadFile(*manualPath)
		if err != nil {
			exitErr(fmt.Sprintf("read research file: %v", err))
		}
		text, err := extract.TextFromBytes(context.Background(), data, "", filepath.Base(*manualPath))
		if err != nil {
			exitErr(fmt.Sprintf("extract research file: %v", err))
		}
		in.ManualResearchData = text
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := gemini.NewProvider(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Burst:             cfg.Gemini.Burst,
	})
	if err != nil {
		exitErr(err.Error())
	}
	var agent llm.ResearchAgent
	if a, err := gemini.NewAgent(gemini.AgentConfig{APIKey: cfg.Gemini.APIKey, BaseURL: cfg.Gemini.BaseURL, Agent: cfg.Gemini.ResearchAgent}); err == nil {
		agent = a
	}

	cfg.DebugEvents = *debug
	orch := bootstrap.BuildPipeline(cfg, provider, agent)
	events, err := orch.Run(ctx, in, nil)
	if err != nil {
		exitErr(err.Error())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	failed := false
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			exitErr(fmt.Sprintf("write event: %v", err))
		}
		switch e := ev.(type) {
		case pipeline.ErrorEvent:
			failed = true
		case pipeline.ResultEvent:
			if *outPath != "" {
				if err := writeResult(*outPath, e.Data); err != nil {
					exitErr(fmt.Sprintf("write output: %v", err))
				}
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func writeResult(path string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
