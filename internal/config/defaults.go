package config

// Queue backends.
const (
	QueueSQLite = "sqlite"
	QueueSheet  = "sheet"
)

// Archive backends.
const (
	ArchiveFilesystem = "filesystem"
	ArchivePostgres   = "postgres"
)

// Batch selection policies.
const (
	SelectAll  = "all"
	SelectNext = "next"
)

const (
	defaultConfigPath           = "~/.config/postforge/config.toml"
	defaultStateDir             = "~/.local/share/postforge"
	defaultLogDir               = "~/.local/share/postforge/logs"
	defaultArchiveDir           = "~/.local/share/postforge/archive"
	defaultArchivePrefix        = "seo_content"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultSheetName            = "Sheet1"
	defaultKeywordColumn        = "KWs"
	defaultSEOTitleColumn       = "SEO Title"
	defaultPostIDColumn         = "Post ID"
	defaultProcessedColumn      = "Processed"
	defaultCMSTimeoutSeconds    = 30
	defaultMetaTitleField       = "_yoast_wpseo_title"
	defaultMetaDescriptionField = "_yoast_wpseo_metadesc"
	defaultLLMBaseURL           = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel             = "gpt-4o"
	defaultLLMFinalModel        = "gpt-4.1"
	defaultLLMTemperature       = 0.7
	defaultLLMFinalTemperature  = 0.3
	defaultLLMReferer           = "https://github.com/postforge/postforge"
	defaultLLMTitle             = "postforge"
	defaultLLMTimeoutSeconds    = 240
	defaultLLMRetryAttempts     = 3
	defaultCTAURL               = "https://appraisily.com/screener"
	defaultItemTimeoutSeconds   = 900
	defaultCallTimeoutSeconds   = 300
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Queue: Queue{
			Backend:         QueueSQLite,
			SheetName:       defaultSheetName,
			KeywordColumn:   defaultKeywordColumn,
			SEOTitleColumn:  defaultSEOTitleColumn,
			PostIDColumn:    defaultPostIDColumn,
			ProcessedColumn: defaultProcessedColumn,
		},
		CMS: CMS{
			TimeoutSeconds:       defaultCMSTimeoutSeconds,
			MetaTitleField:       defaultMetaTitleField,
			MetaDescriptionField: defaultMetaDescriptionField,
		},
		Archive: Archive{
			Backend: ArchiveFilesystem,
			Dir:     defaultArchiveDir,
			Prefix:  defaultArchivePrefix,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			FinalModel:       defaultLLMFinalModel,
			Temperature:      defaultLLMTemperature,
			FinalTemperature: defaultLLMFinalTemperature,
			Referer:          defaultLLMReferer,
			Title:            defaultLLMTitle,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			RetryAttempts:    defaultLLMRetryAttempts,
		},
		Enhance: Enhance{
			CTAURL: defaultCTAURL,
		},
		Workflow: Workflow{
			Selection:          SelectAll,
			ItemTimeoutSeconds: defaultItemTimeoutSeconds,
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Batch:          true,
			Failures:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
