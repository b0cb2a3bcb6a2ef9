package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"docchat"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"docchat"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Page extraction service. The backend never decodes PDFs itself.
	LoaderURL string `envconfig:"LOADER_URL" default:"http://docling:8000"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	EmbedModel   string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	GenModel     string `envconfig:"GEN_MODEL" default:"gemini-1.5-flash"`

	// WorkerConcurrency is the admission-control knob: it bounds concurrent
	// embedding and index calls across the whole pool.
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"20"`
	MaxJobAttempts    int `envconfig:"MAX_JOB_ATTEMPTS" default:"3"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1200"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"150"`
	QueryTopK    int `envconfig:"QUERY_TOP_K" default:"4"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8000"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell, so a missing .env is not an error.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.NSQDHost == "" {
		return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("%w: WORKER_CONCURRENCY must be at least 1", ErrMissingRequired)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: CHUNK_SIZE must be at least 1", ErrMissingRequired)
	}
	// Segment boundaries may fall as early as half the window, so the
	// overlap must stay below that to guarantee forward progress.
	if c.ChunkOverlap < 0 || c.ChunkOverlap*2 >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be less than half of CHUNK_SIZE", ErrMissingRequired)
	}
	return nil
}
