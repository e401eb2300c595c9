package profile

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the explicit run configuration for one memtide invocation.
// Every pipeline takes a Profile at construction time; there is no
// process-wide configuration state.
type Profile struct {
	// Mode selects the target environment: "local", "dev" or "prod".
	// Production mutations require an explicit confirmation or --force.
	Mode string

	// Database configuration.
	Driver string // "postgres" (primary) or "sqlite" (best-effort, dev/test)
	DSN    string

	// Embedding configuration (OpenAI-compatible provider).
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Engine tuning knobs.
	PageSize           int           // history pagination page size
	RetryWindow        time.Duration // duplicate-group max createdTs spread
	DeleteBatchSize    int           // ids per delete statement
	MaxDuplicateGroups int           // group cap per cleanup run

	Version string
}

const (
	defaultPageSize           = 500
	defaultRetryWindow        = 10 * time.Minute
	defaultDeleteBatchSize    = 100
	defaultMaxDuplicateGroups = 1000
)

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Flag values already set take precedence over the environment.
func (p *Profile) FromEnv() {
	if p.DSN == "" {
		p.DSN = getEnvOrDefault("MEMTIDE_DSN", "")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("MEMTIDE_DRIVER", "postgres")
	}

	p.EmbeddingProvider = getEnvOrDefault("MEMTIDE_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("MEMTIDE_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("MEMTIDE_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("MEMTIDE_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("MEMTIDE_EMBEDDING_DIMENSIONS", 1024)

	p.PageSize = getEnvOrDefaultInt("MEMTIDE_PAGE_SIZE", defaultPageSize)
	p.RetryWindow = time.Duration(getEnvOrDefaultInt("MEMTIDE_RETRY_WINDOW_SECONDS", int(defaultRetryWindow/time.Second))) * time.Second
	p.DeleteBatchSize = getEnvOrDefaultInt("MEMTIDE_DELETE_BATCH_SIZE", defaultDeleteBatchSize)
	p.MaxDuplicateGroups = getEnvOrDefaultInt("MEMTIDE_MAX_DUPLICATE_GROUPS", defaultMaxDuplicateGroups)
}

// IsProd reports whether this run targets the production environment.
func (p *Profile) IsProd() bool {
	return p.Mode == "prod"
}

// Validate normalizes and checks the profile before any store access.
func (p *Profile) Validate() error {
	if p.Mode != "local" && p.Mode != "dev" && p.Mode != "prod" {
		return errors.Errorf(`invalid mode %q, want "local", "dev" or "prod"`, p.Mode)
	}
	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf(`invalid driver %q, want "postgres" or "sqlite"`, p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn required (set --dsn or MEMTIDE_DSN)")
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.RetryWindow <= 0 {
		p.RetryWindow = defaultRetryWindow
	}
	if p.DeleteBatchSize <= 0 {
		p.DeleteBatchSize = defaultDeleteBatchSize
	}
	if p.MaxDuplicateGroups <= 0 {
		p.MaxDuplicateGroups = defaultMaxDuplicateGroups
	}
	return nil
}
