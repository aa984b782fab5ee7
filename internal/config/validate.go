package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Missing credentials are not an
// error here: the affected adapter reports itself unavailable at startup.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateCMS(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case QueueSQLite:
		if strings.TrimSpace(c.Queue.DatabasePath) == "" {
			return errors.New("queue.database_path must be set when queue.backend is sqlite")
		}
	case QueueSheet:
		if strings.TrimSpace(c.Queue.SheetPath) == "" {
			return errors.New("queue.sheet_path must be set when queue.backend is sheet")
		}
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (want sqlite or sheet)", c.Queue.Backend)
	}
	return nil
}

func (c *Config) validateCMS() error {
	if c.CMS.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.CMS.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("cms.base_url: invalid url %q", c.CMS.BaseURL)
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !c.CMS.AllowInsecureHTTP {
			return errors.New("cms.base_url must use https (set cms.allow_insecure_http for local testing)")
		}
	default:
		return fmt.Errorf("cms.base_url: unsupported scheme %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Backend {
	case ArchiveFilesystem:
		if strings.TrimSpace(c.Archive.Dir) == "" {
			return errors.New("archive.dir must be set when archive.backend is filesystem")
		}
	case ArchivePostgres:
	default:
		return fmt.Errorf("archive.backend: unsupported value %q (want filesystem or postgres)", c.Archive.Backend)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.FinalTemperature < 0 || c.LLM.FinalTemperature > 2 {
		return errors.New("llm.final_temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0 (0 leaves the limit to the provider)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.Selection {
	case SelectAll, SelectNext:
	default:
		return fmt.Errorf("workflow.selection: unsupported value %q (want all or next)", c.Workflow.Selection)
	}
	if c.Workflow.MaxItems < 0 {
		return errors.New("workflow.max_items must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.item_timeout_seconds": c.Workflow.ItemTimeoutSeconds,
		"workflow.call_timeout_seconds": c.Workflow.CallTimeoutSeconds,
		"cms.timeout_seconds":           c.CMS.TimeoutSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.CallTimeoutSeconds > c.Workflow.ItemTimeoutSeconds {
		return errors.New("workflow.call_timeout_seconds must not exceed workflow.item_timeout_seconds")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
