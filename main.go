package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docchat/features/chat"
	"docchat/features/deadletter"
	"docchat/features/document"
	"docchat/features/upload"
	"docchat/internal/adapter/gemini"
	wstore "docchat/internal/adapter/weaviate"
	"docchat/internal/config"
	"docchat/internal/loader"
	"docchat/internal/logger"
	"docchat/internal/middleware"
	nsqqueue "docchat/internal/queue/nsq"
	"docchat/internal/retrieval"
	"docchat/internal/vector"
	"docchat/internal/worker"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

func main() {
	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	// 2. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Run Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// 4. Weaviate Connection & Collection
	wClient, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	})
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureCollection(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate collection ensured")
			break
		}
		slog.Warn("failed to ensure weaviate collection, retrying...", "attempt", i+1, "error", err)
		time.Sleep(retryDelay)
	}
	if err := vector.EnsureCollection(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate collection after retries", "error", err)
		os.Exit(1)
	}

	// 5. Queue
	// NSQ creates topics lazily on publish, but consumers querying lookupd 404
	// until the topic exists, so pre-create it over nsqd's HTTP api.
	go precreateTopic(cfg.NSQDHost, nsqqueue.Topic)

	q, err := nsqqueue.New(nsqqueue.Config{
		NSQDAddr:    cfg.NSQDHost,
		LookupdAddr: cfg.NSQLookupd,
		Concurrency: cfg.WorkerConcurrency,
	})
	if err != nil {
		slog.Error("failed to create queue", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	// 6. Adapters
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	if err != nil {
		slog.Error("failed to create gemini embedder", "error", err)
		os.Exit(1)
	}
	generator, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GenModel)
	if err != nil {
		slog.Error("failed to create gemini generator", "error", err)
		os.Exit(1)
	}

	vecStore := wstore.NewStore(wClient)
	pageLoader := loader.NewClient(cfg.LoaderURL)

	// 7. Features
	docRepo := document.NewPostgresRepo(db)
	docHandler := document.NewHandler(docRepo)

	deadRepo := deadletter.NewPostgresRepo(db)
	deadService := deadletter.NewService(deadRepo, q)
	deadHandler := deadletter.NewHandler(deadService)

	uploadService := upload.NewService(docRepo, q)
	uploadHandler := upload.NewHandler(uploadService, cfg.UploadDir, cfg.MaxUploadSizeMB)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, generator, queryLogger, cfg.QueryTopK)
	chatHandler := chat.NewHandler(retrievalService)

	// 8. Worker Pool
	pool := worker.NewPool(q, pageLoader, embedder, vecStore, docRepo, deadRepo, worker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		MaxAttempts:  cfg.MaxJobAttempts,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	go pool.Run(ctx)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	http.Handle("POST /upload", middleware.CorrelationID(enableCORS(uploadHandler.Upload)))
	http.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))
	http.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	http.Handle("GET /jobs/failed", middleware.CorrelationID(enableCORS(deadHandler.List)))
	http.Handle("POST /jobs/failed/{id}/retry", middleware.CorrelationID(enableCORS(deadHandler.Retry)))

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// 9. Start Server
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	server := &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// precreateTopic hits nsqd's HTTP api (port 4151) once nsqd had a moment to
// come up. Failure is non-fatal; the topic appears on first publish anyway.
func precreateTopic(nsqdAddr, topic string) {
	host, _, err := net.SplitHostPort(nsqdAddr)
	if err != nil || host == "" {
		host = nsqdAddr
	}
	url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, topic)

	time.Sleep(2 * time.Second)
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		slog.Warn("failed to pre-create topic", "error", err, "url", url)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		slog.Info("topic pre-created", "topic", topic)
	}
}
