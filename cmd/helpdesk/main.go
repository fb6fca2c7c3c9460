package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helpdesk-ai/helpdesk/config"
	"github.com/helpdesk-ai/helpdesk/internal/access"
	"github.com/helpdesk-ai/helpdesk/internal/audit"
	"github.com/helpdesk-ai/helpdesk/internal/documents"
	"github.com/helpdesk-ai/helpdesk/internal/index"
	"github.com/helpdesk-ai/helpdesk/internal/ingest"
	"github.com/helpdesk-ai/helpdesk/internal/ollama"
	"github.com/helpdesk-ai/helpdesk/internal/rag"
	"github.com/helpdesk-ai/helpdesk/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file")
		ingestFlag = flag.Bool("ingest", false, "Rebuild the configured collection from the configured documents and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	client := ollama.NewClient(ollama.Config{
		BaseURL:       cfg.Ollama.BaseURL,
		EmbedModel:    cfg.Ollama.EmbedModel,
		GenerateModel: cfg.Ollama.GenerateModel,
		Dimension:     cfg.Embeddings.Dimension,
	})
	checkModels(ctx, client)

	store, err := index.New(ctx, cfg.Database.ConnectionString, cfg.Embeddings.Dimension)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to vector index: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *ingestFlag {
		runIngest(ctx, cfg, client, store)
		return
	}

	runServer(cfg, client, store)
}

// checkModels warns when the configured models are not pulled yet
func checkModels(ctx context.Context, client *ollama.Client) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	missing, err := client.MissingModels(checkCtx)
	if err != nil {
		log.Printf("Warning: could not list Ollama models: %v", err)
		return
	}
	for _, m := range missing {
		log.Printf("Warning: model %q not found on Ollama server, run: ollama pull %s", m, m)
	}
}

func runIngest(ctx context.Context, cfg *config.Config, client *ollama.Client, store *index.Store) {
	if len(cfg.Ingest.Files) == 0 {
		fmt.Fprintln(os.Stderr, "No ingest files configured")
		os.Exit(1)
	}

	ing := ingest.New(
		documents.NewLoader(),
		documents.NewChunker(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap),
		client,
		store,
		nil,
	)

	stats, err := ing.Run(ctx, cfg.Ingest.Collection, cfg.Ingest.Files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during ingestion: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d files (%d skipped), %d chunks stored\n",
		stats.FilesLoaded, stats.FilesSkipped, stats.ChunksStored)
}

func runServer(cfg *config.Config, client *ollama.Client, store *index.Store) {
	queryLog, err := audit.Open(cfg.Audit.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit log: %v\n", err)
		os.Exit(1)
	}
	defer queryLog.Close()

	pipeline := rag.NewPipeline(
		access.NewStaticResolver(cfg.Access.Collections),
		client,
		rag.NewRetriever(store, cfg.Processing.TopK, nil),
		rag.NewSynthesizer(client),
		queryLog,
	)

	srv := server.New(pipeline, nil)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := srv.Start(cfg.Server.Addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
