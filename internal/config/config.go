package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Queue selects and configures the work item source.
type Queue struct {
	Backend         string `toml:"backend"`
	DatabasePath    string `toml:"database_path"`
	SheetPath       string `toml:"sheet_path"`
	SheetName       string `toml:"sheet_name"`
	KeywordColumn   string `toml:"keyword_column"`
	SEOTitleColumn  string `toml:"seo_title_column"`
	PostIDColumn    string `toml:"post_id_column"`
	ProcessedColumn string `toml:"processed_column"`
}

// CMS contains WordPress REST API settings.
type CMS struct {
	BaseURL              string `toml:"base_url"`
	Username             string `toml:"username"`
	Password             string `toml:"password"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	MetaTitleField       string `toml:"meta_title_field"`
	MetaDescriptionField string `toml:"meta_description_field"`
	AllowInsecureHTTP    bool   `toml:"allow_insecure_http"`
}

// Archive selects where stage snapshots are written.
type Archive struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	Prefix      string `toml:"prefix"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// LLM contains the chat completion endpoint and per-stage model settings.
// Draft stages use Model/Temperature/MaxTokens; the finalization stage uses
// FinalModel/FinalTemperature and never sends a token cap.
type LLM struct {
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	Model            string  `toml:"model"`
	FinalModel       string  `toml:"final_model"`
	Temperature      float64 `toml:"temperature"`
	FinalTemperature float64 `toml:"final_temperature"`
	MaxTokens        int     `toml:"max_tokens"`
	Referer          string  `toml:"referer"`
	Title            string  `toml:"title"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RetryAttempts    int     `toml:"retry_attempts"`
}

// Enhance configures prompt construction.
type Enhance struct {
	PromptsPath string `toml:"prompts_path"`
	CTAURL      string `toml:"cta_url"`
}

// Workflow contains batch selection and timeout settings.
type Workflow struct {
	Selection          string `toml:"selection"`
	MaxItems           int    `toml:"max_items"`
	ItemTimeoutSeconds int    `toml:"item_timeout_seconds"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Failures       bool   `toml:"failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for postforge.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Queue: work item source (sqlite database or xlsx sheet)
//   - CMS: WordPress REST endpoint and credentials
//   - Archive: snapshot storage (filesystem or postgres)
//   - LLM: chat completion endpoint and stage models
//   - Enhance: prompt catalogue overrides
//   - Workflow: selection policy and timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	CMS           CMS           `toml:"cms"`
	Archive       Archive       `toml:"archive"`
	LLM           LLM           `toml:"llm"`
	Enhance       Enhance       `toml:"enhance"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("postforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and CLI write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	if c.Archive.Backend == ArchiveFilesystem {
		dirs = append(dirs, c.Archive.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunLockPath is the lock file that serializes batch runs across processes.
func (c *Config) RunLockPath() string {
	return filepath.Join(c.Paths.StateDir, "run.lock")
}

// DaemonLockPath is the lock file held by a running daemon.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "postforged.lock")
}

// ItemTimeout is the wall-clock budget for one work item.
func (c *Config) ItemTimeout() time.Duration {
	return time.Duration(c.Workflow.ItemTimeoutSeconds) * time.Second
}

// CallTimeout bounds every individual external call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Workflow.CallTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
