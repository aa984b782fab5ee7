package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postforge/internal/archive"
	"postforge/internal/cms"
	"postforge/internal/config"
	"postforge/internal/logging"
	"postforge/internal/queue"
	"postforge/internal/services"
	"postforge/internal/services/llm"
)

// Capability names reported by Status.
const (
	NameQueue     = "queue"
	NameDocuments = "documents"
	NameArchive   = "archive"
	NameGenerator = "generator"
)

// Generator is the text-generation capability plus a liveness probe.
type Generator interface {
	Generate(ctx context.Context, prompt string, params llm.Params) (llm.Generation, error)
	HealthCheck(ctx context.Context) error
}

// Health reports whether a capability was initialized.
type Health struct {
	Name    string `json:"name"`
	Backend string `json:"backend,omitempty"`
	Ready   bool   `json:"ready"`
	Detail  string `json:"detail,omitempty"`
}

// Set is the lifecycle handle over every capability.
type Set struct {
	Queue     queue.Source
	Documents cms.Store
	Archive   archive.Archive
	Generator Generator

	status []Health
}

// New wraps already constructed capabilities. Nil values are replaced by
// unavailable stand-ins.
func New(source queue.Source, documents cms.Store, arch archive.Archive, generator Generator) *Set {
	set := &Set{}
	set.setQueue("", source, nil)
	set.setDocuments(documents, nil)
	set.setArchive("", arch, nil)
	set.setGenerator(generator, nil)
	return set
}

// Connect builds every capability from cfg. It never fails; inspect Status
// or Ready for initialization problems.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Set {
	logger = logging.NewComponentLogger(logger, "adapters")
	set := &Set{}

	source, err := openQueue(cfg, logger)
	set.setQueue(cfg.Queue.Backend, source, err)

	var documents cms.Store
	client, err := cms.NewFromConfig(cfg)
	if err == nil {
		documents = client
	}
	set.setDocuments(documents, err)

	arch, err := openArchive(ctx, cfg, logger)
	set.setArchive(cfg.Archive.Backend, arch, err)

	var generator Generator
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		err = errors.New("llm api key not configured")
	} else {
		err = nil
		generator = llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts))
	}
	set.setGenerator(generator, err)

	for _, health := range set.status {
		if health.Ready {
			logger.Debug("adapter initialized",
				logging.String(logging.FieldEventType, "adapter_ready"),
				logging.String("adapter", health.Name),
				logging.String("backend", health.Backend),
			)
			continue
		}
		logging.WarnWithContext(logger, "adapter initialization failed", "adapter_init_failed",
			logging.String("adapter", health.Name),
			logging.String("backend", health.Backend),
			logging.String(logging.FieldReason, health.Detail),
			logging.String(logging.FieldErrorHint, "check the ["+configSection(health.Name)+"] section and credentials"),
			logging.String(logging.FieldImpact, "batch runs are refused until the adapter is available"),
		)
	}
	return set
}

func openQueue(cfg *config.Config, logger *slog.Logger) (queue.Source, error) {
	switch cfg.Queue.Backend {
	case config.QueueSheet:
		return queue.NewSheetFromConfig(cfg, logger)
	default:
		return queue.Open(cfg)
	}
}

func openArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (archive.Archive, error) {
	switch cfg.Archive.Backend {
	case config.ArchivePostgres:
		return archive.OpenPostgres(ctx, archive.PostgresConfig{
			DSN:         cfg.Archive.PostgresDSN,
			DialTimeout: 10 * time.Second,
		}, logger)
	default:
		return archive.NewFilesystem(cfg.Archive.Dir, cfg.Archive.Prefix)
	}
}

func configSection(name string) string {
	switch name {
	case NameDocuments:
		return "cms"
	case NameGenerator:
		return "llm"
	default:
		return name
	}
}

func (s *Set) record(name, backend string, ready bool, err error) {
	health := Health{Name: name, Backend: backend, Ready: ready}
	if err != nil {
		health.Detail = err.Error()
	} else if !ready {
		health.Detail = "not configured"
	}
	s.status = append(s.status, health)
}

func (s *Set) setQueue(backend string, source queue.Source, err error) {
	ready := err == nil && source != nil
	s.record(NameQueue, backend, ready, err)
	if ready {
		s.Queue = source
		return
	}
	s.Queue = unavailableQueue{unavailable{name: NameQueue, cause: s.status[len(s.status)-1].Detail}}
}

func (s *Set) setDocuments(documents cms.Store, err error) {
	ready := err == nil && documents != nil
	s.record(NameDocuments, "wordpress", ready, err)
	if ready {
		s.Documents = documents
		return
	}
	s.Documents = unavailableDocuments{unavailable{name: NameDocuments, cause: s.status[len(s.status)-1].Detail}}
}

func (s *Set) setArchive(backend string, arch archive.Archive, err error) {
	ready := err == nil && arch != nil
	s.record(NameArchive, backend, ready, err)
	if ready {
		s.Archive = arch
		return
	}
	s.Archive = unavailableArchive{unavailable{name: NameArchive, cause: s.status[len(s.status)-1].Detail}}
}

func (s *Set) setGenerator(generator Generator, err error) {
	ready := err == nil && generator != nil
	s.record(NameGenerator, "", ready, err)
	if ready {
		s.Generator = generator
		return
	}
	s.Generator = unavailableGenerator{unavailable{name: NameGenerator, cause: s.status[len(s.status)-1].Detail}}
}

// Status returns the initialization outcome of every capability.
func (s *Set) Status() []Health {
	out := make([]Health, len(s.status))
	copy(out, s.status)
	return out
}

// Ready returns ErrAdapterConnection naming every unavailable capability.
func (s *Set) Ready() error {
	var missing []string
	for _, health := range s.status {
		if !health.Ready {
			missing = append(missing, fmt.Sprintf("%s (%s)", health.Name, health.Detail))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrAdapterConnection, "", "adapters", "unavailable: "+strings.Join(missing, ", "), nil)
}

// Probe runs a live health check against every ready capability.
func (s *Set) Probe(ctx context.Context) []Health {
	out := s.Status()
	checks := map[string]func(context.Context) error{
		NameQueue:     s.Queue.HealthCheck,
		NameDocuments: s.Documents.HealthCheck,
		NameArchive:   s.Archive.HealthCheck,
		NameGenerator: s.Generator.HealthCheck,
	}
	for i := range out {
		if !out[i].Ready {
			continue
		}
		check, ok := checks[out[i].Name]
		if !ok {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := check(probeCtx)
		cancel()
		if err != nil {
			out[i].Ready = false
			out[i].Detail = err.Error()
			continue
		}
		out[i].Detail = "reachable"
	}
	return out
}

// Close releases every capability.
func (s *Set) Close() error {
	var errs []error
	if s.Queue != nil {
		errs = append(errs, s.Queue.Close())
	}
	if s.Archive != nil {
		errs = append(errs, s.Archive.Close())
	}
	return errors.Join(errs...)
}
