package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	openaiembed "github.com/keepstack/keepstack/internal/adapters/driven/embedding/openai"
	openaillm "github.com/keepstack/keepstack/internal/adapters/driven/llm/openai"
	"github.com/keepstack/keepstack/internal/adapters/driven/pdf"
	"github.com/keepstack/keepstack/internal/adapters/driven/storage/sqlite"
	"github.com/keepstack/keepstack/internal/adapters/driven/tokenizer"
	"github.com/keepstack/keepstack/internal/adapters/driving/httpapi"
	"github.com/keepstack/keepstack/internal/adapters/driving/watcher"
	"github.com/keepstack/keepstack/internal/chunker"
	"github.com/keepstack/keepstack/internal/config"
	"github.com/keepstack/keepstack/internal/core/services"
	"github.com/keepstack/keepstack/internal/logger"
)

// shutdownGrace is how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the keepstack API server",
	Long: `Starts the HTTP API server. Notes saved through the API are indexed
after a debounce period, and chat requests stream answers grounded in
the indexed content.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.OpenAI.APIKey == "" {
		return errors.New("no OpenAI API key configured (set OPENAI_API_KEY or openai.api_key)")
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("Store: %s", store.Path())

	embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return err
	}
	defer embedder.Close()

	llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
	})
	if err != nil {
		return err
	}
	defer llm.Close()

	tokens, err := tokenizer.NewForModel(llm.ModelName())
	if err != nil {
		return err
	}

	splitter, err := chunker.NewSplitter(cfg.Indexing.ChunkSize, cfg.Indexing.ChunkOverlap)
	if err != nil {
		return err
	}

	indexer := services.NewIndexService(
		store.NoteStore(), store.ChunkStore(), embedder, pdf.New(), splitter,
		services.IndexConfig{
			BatchSize: cfg.Indexing.EmbedBatchSize,
			EmbedRate: cfg.Indexing.EmbedRate,
		})

	scheduler := services.NewDebounceScheduler(indexer, cfg.Indexing.DebounceWait)
	defer scheduler.Stop()

	chat := services.NewChatService(
		store.ChunkStore(), store.NoteStore(), embedder, llm,
		services.NewIntentRouter(llm), tokens,
		services.ChatConfig{
			HistoryBudget: cfg.Chat.HistoryBudget,
			SearchLimit:   cfg.Chat.SearchLimit,
		})

	api := httpapi.NewServer(chat, indexer, scheduler, store.NoteStore())
	if err := api.Start(cfg.Server.ListenAddr); err != nil {
		return err
	}
	cmd.Printf("keepstack listening on %s\n", api.Addr())

	if cfg.Storage.AttachmentsDir != "" {
		w := watcher.New(indexer, cfg.Storage.AttachmentsDir)
		if err := w.Start(); err != nil {
			return fmt.Errorf("start attachment watcher: %w", err)
		}
		defer w.Stop()
	}

	// Block until interrupted.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	cmd.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return api.Shutdown(ctx)
}
