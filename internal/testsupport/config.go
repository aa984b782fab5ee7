package testsupport

import (
	"path/filepath"
	"testing"

	"postforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders so every adapter is constructible.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Queue.DatabasePath = filepath.Join(base, "state", "queue.db")
	cfgVal.Archive.Dir = filepath.Join(base, "archive")
	cfgVal.CMS.BaseURL = "https://cms.invalid/wp-json"
	cfgVal.CMS.Username = "editor"
	cfgVal.CMS.Password = "secret"
	cfgVal.LLM.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSheet switches the queue backend to the workbook at path.
func WithSheet(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Backend = config.QueueSheet
		b.cfg.Queue.SheetPath = path
	}
}

// WithCMS points the document store at baseURL, typically an httptest server.
func WithCMS(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CMS.BaseURL = baseURL
		b.cfg.CMS.AllowInsecureHTTP = true
	}
}

// WithAPIToken requires bearer authentication on the HTTP surface.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithoutCredentials clears every adapter credential.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CMS.BaseURL = ""
		b.cfg.CMS.Username = ""
		b.cfg.CMS.Password = ""
		b.cfg.LLM.APIKey = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
