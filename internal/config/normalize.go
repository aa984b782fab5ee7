package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	c.normalizeCMS()
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizeEnhance(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("POSTFORGE_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	var err error
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	switch c.Queue.Backend {
	case "":
		c.Queue.Backend = QueueSQLite
	case "xlsx", "spreadsheet":
		c.Queue.Backend = QueueSheet
	}
	if strings.TrimSpace(c.Queue.DatabasePath) == "" {
		c.Queue.DatabasePath = filepath.Join(c.Paths.StateDir, "queue.db")
	}
	if c.Queue.DatabasePath, err = expandPath(c.Queue.DatabasePath); err != nil {
		return fmt.Errorf("queue.database_path: %w", err)
	}
	if c.Queue.SheetPath, err = expandPath(strings.TrimSpace(c.Queue.SheetPath)); err != nil {
		return fmt.Errorf("queue.sheet_path: %w", err)
	}
	c.Queue.SheetName = defaultString(c.Queue.SheetName, defaultSheetName)
	c.Queue.KeywordColumn = defaultString(c.Queue.KeywordColumn, defaultKeywordColumn)
	c.Queue.SEOTitleColumn = defaultString(c.Queue.SEOTitleColumn, defaultSEOTitleColumn)
	c.Queue.PostIDColumn = defaultString(c.Queue.PostIDColumn, defaultPostIDColumn)
	c.Queue.ProcessedColumn = defaultString(c.Queue.ProcessedColumn, defaultProcessedColumn)
	return nil
}

func (c *Config) normalizeCMS() {
	c.CMS.BaseURL = strings.TrimRight(strings.TrimSpace(c.CMS.BaseURL), "/")
	if c.CMS.BaseURL == "" {
		c.CMS.BaseURL = strings.TrimRight(lookupEnv("WORDPRESS_API_URL"), "/")
	}
	c.CMS.Username = strings.TrimSpace(c.CMS.Username)
	if c.CMS.Username == "" {
		c.CMS.Username = lookupEnv("WORDPRESS_USERNAME")
	}
	if strings.TrimSpace(c.CMS.Password) == "" {
		c.CMS.Password = lookupEnv("WORDPRESS_PASSWORD")
	}
	if c.CMS.TimeoutSeconds <= 0 {
		c.CMS.TimeoutSeconds = defaultCMSTimeoutSeconds
	}
	c.CMS.MetaTitleField = defaultString(c.CMS.MetaTitleField, defaultMetaTitleField)
	c.CMS.MetaDescriptionField = defaultString(c.CMS.MetaDescriptionField, defaultMetaDescriptionField)
}

func (c *Config) normalizeArchive() error {
	var err error
	c.Archive.Backend = strings.ToLower(strings.TrimSpace(c.Archive.Backend))
	switch c.Archive.Backend {
	case "", "fs", "file":
		c.Archive.Backend = ArchiveFilesystem
	case "postgresql", "pg":
		c.Archive.Backend = ArchivePostgres
	}
	if strings.TrimSpace(c.Archive.Dir) == "" {
		c.Archive.Dir = defaultArchiveDir
	}
	if c.Archive.Dir, err = expandPath(c.Archive.Dir); err != nil {
		return fmt.Errorf("archive.dir: %w", err)
	}
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = defaultArchivePrefix
	}
	c.Archive.PostgresDSN = strings.TrimSpace(c.Archive.PostgresDSN)
	if c.Archive.PostgresDSN == "" {
		if value := lookupEnv("POSTFORGE_POSTGRES_DSN"); value != "" {
			c.Archive.PostgresDSN = value
		} else {
			c.Archive.PostgresDSN = lookupEnv("DATABASE_URL")
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value := lookupEnv("POSTFORGE_LLM_API_KEY"); value != "" {
			c.LLM.APIKey = value
		} else {
			c.LLM.APIKey = lookupEnv("OPENAI_API_KEY")
		}
	}
	c.LLM.BaseURL = defaultString(c.LLM.BaseURL, defaultLLMBaseURL)
	c.LLM.Model = defaultString(c.LLM.Model, defaultLLMModel)
	c.LLM.FinalModel = defaultString(c.LLM.FinalModel, c.LLM.Model)
	c.LLM.Referer = defaultString(c.LLM.Referer, defaultLLMReferer)
	c.LLM.Title = defaultString(c.LLM.Title, defaultLLMTitle)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = 1
	}
}

func (c *Config) normalizeEnhance() error {
	var err error
	if c.Enhance.PromptsPath, err = expandPath(strings.TrimSpace(c.Enhance.PromptsPath)); err != nil {
		return fmt.Errorf("enhance.prompts_path: %w", err)
	}
	c.Enhance.CTAURL = defaultString(c.Enhance.CTAURL, defaultCTAURL)
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.Selection = strings.ToLower(strings.TrimSpace(c.Workflow.Selection))
	if c.Workflow.Selection == "" {
		c.Workflow.Selection = SelectAll
	}
	if c.Workflow.ItemTimeoutSeconds <= 0 {
		c.Workflow.ItemTimeoutSeconds = defaultItemTimeoutSeconds
	}
	if c.Workflow.CallTimeoutSeconds <= 0 {
		c.Workflow.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = lookupEnv("NTFY_TOPIC")
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
