package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fabfab/doc-intel/api"
	"github.com/fabfab/doc-intel/config"
	"github.com/fabfab/doc-intel/database"
	"github.com/fabfab/doc-intel/docstore"
	"github.com/fabfab/doc-intel/embeddings"
	"github.com/fabfab/doc-intel/extraction"
	"github.com/fabfab/doc-intel/ingestion"
	"github.com/fabfab/doc-intel/llm"
	"github.com/fabfab/doc-intel/rag"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "extract":
		extractCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "address to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store setup: %v", err)
	}
	defer closeStore()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	ingestSvc := ingestion.NewService(store, embedder, logger)
	askSvc := rag.NewService(store, embedder, llmClient, logger, rag.DefaultParams())
	extractor := extraction.NewExtractor(llmClient, logger)

	server := api.New(store, ingestSvc, askSvc, extractor, logger)

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s (store: %s, llm: %s/%s)", *addr, cfg.StoreBackend, cfg.LLM.Provider, cfg.LLM.Model)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	file := flags.String("file", "", "document to ingest and question")
	question := flags.String("question", "", "question to ask about the document")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*file) == "" || strings.TrimSpace(*question) == "" {
		logger.Fatal("ask requires --file and --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	store := docstore.NewMemoryStore()
	ingestSvc := ingestion.NewService(store, embedder, logger)

	doc, err := ingestSvc.Ingest(ctx, *file, data)
	if err != nil {
		logger.Fatalf("ingest failed: %v", err)
	}

	askSvc := rag.NewService(store, embedder, llmClient, logger, rag.DefaultParams())
	answer, err := askSvc.Ask(ctx, doc.ID, *question)
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}

	fmt.Println(answer.Text)
	fmt.Printf("\nConfidence: %.3f (%s)\n", answer.Confidence.Total, answer.Reasoning)
	if answer.GuardrailTriggered {
		fmt.Println("Guardrail triggered")
	}
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for idx, source := range answer.Sources {
			snippet := source
			if len(snippet) > 120 {
				snippet = snippet[:120] + "..."
			}
			fmt.Printf("%d. %s\n", idx+1, snippet)
		}
	}
}

func extractCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("extract", flag.ExitOnError)
	file := flags.String("file", "", "document to extract shipment fields from")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse extract flags: %v", err)
	}

	if strings.TrimSpace(*file) == "" {
		logger.Fatal("extract requires --file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	text, err := ingestion.ExtractText(data, *file)
	if err != nil {
		logger.Fatalf("extract text: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	extractor := extraction.NewExtractor(llmClient, logger)
	result, err := extractor.Extract(ctx, text)
	if err != nil {
		if !errors.Is(err, extraction.ErrParse) {
			logger.Fatalf("extraction failed: %v", err)
		}
		logger.Printf("extraction recovered: %v", err)
	}

	fmt.Printf("Extraction confidence: %.3f\n\n", result.Confidence)
	printField("shipment_id", result.ShipmentID)
	printField("shipper", result.Shipper)
	printField("consignee", result.Consignee)
	printField("pickup_datetime", result.PickupDatetime)
	printField("delivery_datetime", result.DeliveryDatetime)
	printField("equipment_type", result.EquipmentType)
	printField("mode", result.Mode)
	printField("rate", result.Rate)
	printField("currency", result.Currency)
	printField("weight", result.Weight)
	printField("carrier_name", result.CarrierName)
}

func printField(name string, value *string) {
	if value == nil {
		fmt.Printf("%s: -\n", name)
		return
	}
	fmt.Printf("%s: %s\n", name, *value)
}

func newStore(ctx context.Context, cfg config.Config) (docstore.Repository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return docstore.NewMemoryStore(), func() {}, nil
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return docstore.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func printUsage() {
	fmt.Println("Usage: doc-intel <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the HTTP API (upload, ask, extract)")
	fmt.Println("  ask      Ingest a document from disk and ask a question about it")
	fmt.Println("  extract  Extract structured shipment fields from a document")
}
