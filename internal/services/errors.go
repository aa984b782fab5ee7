package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Pipeline failure markers. Each maps to a stable reason code through Reason.
var (
	ErrAdapterConnection     = errors.New("adapter not initialized")
	ErrDocumentNotFound      = fmt.Errorf("document %w", ErrNotFound)
	ErrDocumentUpdate        = errors.New("document update failed")
	ErrArchive               = errors.New("archive write failed")
	ErrEnhancementFormat     = errors.New("enhancement output malformed")
	ErrEnhancementValidation = errors.New("enhancement output incomplete")
	ErrEnhancementTruncated  = errors.New("enhancement output truncated")
	ErrQueueUpdate           = errors.New("queue update failed")
)

// Reason codes reported in batch failure records.
const (
	ReasonAdapterConnection     = "AdapterConnectionError"
	ReasonDocumentNotFound      = "DocumentNotFound"
	ReasonDocumentUpdate        = "DocumentUpdateError"
	ReasonArchive               = "ArchiveError"
	ReasonEnhancementFormat     = "EnhancementFormatError"
	ReasonEnhancementValidation = "EnhancementValidationError"
	ReasonEnhancementTruncated  = "EnhancementTruncatedError"
	ReasonQueueUpdate           = "QueueUpdateError"
	ReasonTimeout               = "Timeout"
	ReasonCanceled              = "Canceled"
	ReasonGeneration            = "GenerationError"
	ReasonValidation            = "ValidationError"
	ReasonUnknown               = "Error"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reason classifies err into the reason code persisted in batch results.
// Specific pipeline markers win over the generic ones.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAdapterConnection):
		return ReasonAdapterConnection
	case errors.Is(err, ErrDocumentNotFound):
		return ReasonDocumentNotFound
	case errors.Is(err, ErrEnhancementTruncated):
		return ReasonEnhancementTruncated
	case errors.Is(err, ErrEnhancementValidation):
		return ReasonEnhancementValidation
	case errors.Is(err, ErrEnhancementFormat):
		return ReasonEnhancementFormat
	case errors.Is(err, ErrArchive):
		return ReasonArchive
	case errors.Is(err, ErrDocumentUpdate):
		return ReasonDocumentUpdate
	case errors.Is(err, ErrQueueUpdate):
		return ReasonQueueUpdate
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrTransient):
		return ReasonGeneration
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return ReasonValidation
	default:
		return ReasonUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
