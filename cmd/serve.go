package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/course-api/api"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/database"
	"github.com/killallgit/course-api/internal/services/cache"
	"github.com/killallgit/course-api/internal/services/contentid"
	"github.com/killallgit/course-api/internal/services/generation"
	"github.com/killallgit/course-api/internal/services/llm/gemini"
	"github.com/killallgit/course-api/internal/services/prompts"
	"github.com/killallgit/course-api/internal/services/sessions"
	"github.com/killallgit/course-api/pkg/config"
	"github.com/killallgit/course-api/pkg/transcript"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Course Generation API server with the configured settings.

Example:
  course-api serve
  course-api serve --port 9090
  course-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := api.NewServer(cfg)
	server.SetDependencies(deps)
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Printf("[INFO] Course Generation API listening on %s", server.Addr())

	select {
	case <-ctx.Done():
		log.Printf("[INFO] Shutting down server...")
	case err := <-serverErr:
		log.Printf("[ERROR] %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
		return err
	}

	log.Printf("[INFO] Server gracefully stopped")
	return nil
}

// buildOrchestrator wires the generation pipeline from configuration
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*generation.Orchestrator, *cache.TranscriptCache, error) {
	manager, err := loadPrompts(cfg.Generation.PromptsFile)
	if err != nil {
		return nil, nil, err
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: float32(cfg.Gemini.Temperature),
		Profiles:    cfg.Gemini.Profiles,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	transcripts := cache.NewTranscriptCache(cfg.TranscriptCache.TTL())

	fetchOptions := transcript.DefaultFetchOptions()
	fetchOptions.URLTemplate = cfg.Transcript.URLTemplate
	if cfg.Transcript.Timeout > 0 {
		fetchOptions.Timeout = cfg.Transcript.Timeout
	}
	if cfg.Transcript.UserAgent != "" {
		fetchOptions.UserAgent = cfg.Transcript.UserAgent
	}
	if cfg.Transcript.MaxSize > 0 {
		fetchOptions.MaxSize = cfg.Transcript.MaxSize
	}

	orchestrator := generation.NewOrchestrator(generation.Options{
		Classifier: contentid.NewPatternClassifier(),
		Cache:      transcripts,
		Fetcher:    transcript.NewFetcher(fetchOptions),
		Prompts:    manager,
		Generator:  client,
		Timeout:    cfg.Generation.Timeout,
	})
	return orchestrator, transcripts, nil
}

func loadPrompts(path string) (*prompts.Manager, error) {
	if path == "" {
		return prompts.NewManager()
	}
	manager, err := prompts.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts from %s: %w", path, err)
	}
	log.Printf("[INFO] Loaded prompts from %s", path)
	return manager, nil
}

// buildDependencies assembles every handler dependency. The returned
// cleanup releases the database connection.
func buildDependencies(ctx context.Context, cfg *config.Config) (*types.Dependencies, func(), error) {
	orchestrator, transcripts, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := &types.Dependencies{
		Generator:    orchestrator,
		Transcripts:  orchestrator,
		Classifier:   contentid.NewPatternClassifier(),
		CacheStats:   transcripts,
		StreamBuffer: cfg.Generation.StreamBuffer,
		Build: types.BuildInfo{
			Version:   Version,
			GitCommit: GitCommit,
			BuildTime: BuildTime,
		},
	}

	cleanup := func() {}
	if cfg.Database.Path == "" {
		log.Printf("[WARN] Database path not configured, session log disabled")
		return deps, cleanup, nil
	}

	db, err := database.InitializeWithMigrations(cfg.Database)
	if err != nil {
		log.Printf("[WARN] Session log unavailable: %v", err)
		return deps, cleanup, nil
	}

	deps.DB = db
	deps.Sessions = sessions.NewService(sessions.NewRepository(db.DB))
	cleanup = func() {
		if err := db.Close(); err != nil {
			log.Printf("[WARN] Failed to close database: %v", err)
		}
	}
	return deps, cleanup, nil
}
