// Package app wires the analysis components from configuration. It is
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"roleplay-insights-go/internal/catalog"
	"roleplay-insights-go/internal/collector"
	"roleplay-insights-go/internal/config"
	"roleplay-insights-go/internal/evaluator"
	"roleplay-insights-go/internal/inference"
	"roleplay-insights-go/internal/knowledge"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/memory"
	"roleplay-insights-go/internal/merger"
	"roleplay-insights-go/internal/pipeline"
	"roleplay-insights-go/internal/processor"
	"roleplay-insights-go/internal/recording"
	"roleplay-insights-go/internal/status"
	"roleplay-insights-go/internal/store"
)

type App struct {
	Config    config.Config
	Store     *store.Store
	Catalog   *catalog.Catalog
	Tracker   *status.Tracker
	Merger    *merger.Merger
	Processor *processor.Processor

	closers []func() error
}

// model is what the evaluators and the knowledge base need from inference.
type model interface {
	inference.Generator
	inference.VideoAnalyzer
	inference.Embedder
}

func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg}
	built := false
	defer func() {
		if !built {
			_ = a.Close()
		}
	}()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	a.Catalog, err = catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	log.WithField("scenarios", len(a.Catalog.List())).Info("scenario catalog loaded")

	var llm model
	if cfg.UseMockLLM {
		log.Warn("using mock model gateway")
		llm = inference.NewMock()
	} else {
		client, err := inference.NewClient(inference.Options{
			BaseURL:     cfg.LLMGatewayURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			VideoModel:  cfg.LLMVideoModel,
			EmbedModel:  cfg.LLMEmbedModel,
			ReadTimeout: cfg.FeedbackTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		llm = client
	}

	vectors, err := store.NewVecStore(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	kb := knowledge.New(vectors, llm, log)

	var backend status.Backend = st
	if cfg.StatusBackend == "redis" {
		rb, err := status.NewRedisBackend(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rb.Close)
		backend = rb
	}
	a.Tracker = status.NewTracker(backend, cfg.StatusTTL, log)

	var events memory.EventSource
	if cfg.MemoryURL != "" {
		events = memory.NewClient(memory.ClientOptions{
			BaseURL:    cfg.MemoryURL,
			MemoryID:   cfg.MemoryID,
			MaxResults: cfg.MemoryMaxResults,
			Timeout:    cfg.MemoryHTTPTimeout,
		}, log)
	}

	locator, err := buildLocator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, isCloser := locator.(interface{ Close() error }); isCloser {
		a.closers = append(a.closers, closer.Close)
	}

	col := collector.New(collector.Deps{
		Sessions:    st,
		Scenarios:   a.Catalog,
		Transcripts: memory.NewService(events, st, log),
		Recordings:  locator,
		Indexer:     kb,
		Status:      a.Tracker,
	}, log)

	evals := &evaluator.Set{
		Feedback:  evaluator.NewFeedbackEvaluator(llm, log),
		Video:     evaluator.NewVideoEvaluator(llm, log),
		Reference: evaluator.NewReferenceEvaluator(kb, llm, cfg.ReferenceParallel, log),
	}

	a.Merger = merger.New(st, cfg.AnalysisTTL, log)
	pl := pipeline.New(pipeline.Deps{
		Collector:  col,
		Evaluators: evals,
		Merge:      merger.Merge,
		Persister:  a.Merger,
		Status:     a.Tracker,
	}, log)
	a.Processor = processor.New(pl, a.Tracker, a.Merger, cfg.WorkflowTimeout, log)

	built = true
	return a, nil
}

func buildLocator(ctx context.Context, cfg config.Config) (recording.Locator, error) {
	switch {
	case cfg.RecordingBucket != "":
		return recording.NewGCSLocator(ctx, cfg.RecordingBucket)
	case cfg.RecordingDir != "":
		return recording.FSLocator{Root: cfg.RecordingDir}, nil
	}
	return recording.None{}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
