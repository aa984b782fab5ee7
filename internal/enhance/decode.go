package enhance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"postforge/internal/services"
	"postforge/internal/services/llm"
)

const finalReplySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["content", "metaTitle", "metaDescription"],
  "properties": {
    "content": {"type": "string", "minLength": 1},
    "metaTitle": {"type": "string"},
    "metaDescription": {"type": "string"}
  }
}`

var finalSchema = compileFinalSchema()

func compileFinalSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("final_reply.json", strings.NewReader(finalReplySchema)); err != nil {
		panic(fmt.Sprintf("add final reply schema: %v", err))
	}
	return compiler.MustCompile("final_reply.json")
}

// FinalReply is the structured reply of the finalization stage.
type FinalReply struct {
	Content         string `json:"content"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// decodeRaw returns a RawHtml reply verbatim. A reply that is only
// whitespace is treated as empty.
func decodeRaw(stage, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrEnhancementFormat, stage, "decode", "empty reply", nil)
	}
	return text, nil
}

// DecodeFinal parses a finalization reply. Unparsable text fails with
// ErrEnhancementFormat; a JSON object missing content, metaTitle or
// metaDescription fails with ErrEnhancementValidation.
func DecodeFinal(stage, text string) (FinalReply, error) {
	body := llm.StripFence(text)
	decoder := json.NewDecoder(strings.NewReader(body))
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return FinalReply{}, services.Wrap(services.ErrEnhancementFormat, stage, "decode", "reply is not valid JSON", err)
	}
	if err := decoder.Decode(new(any)); !errors.Is(err, io.EOF) {
		return FinalReply{}, services.Wrap(services.ErrEnhancementFormat, stage, "decode", "trailing data after JSON object", err)
	}
	object, ok := payload.(map[string]any)
	if !ok {
		return FinalReply{}, services.Wrap(services.ErrEnhancementFormat, stage, "decode", fmt.Sprintf("expected JSON object, got %T", payload), nil)
	}
	if err := finalSchema.Validate(object); err != nil {
		return FinalReply{}, services.Wrap(services.ErrEnhancementValidation, stage, "validate", "reply does not match schema", err)
	}
	return FinalReply{
		Content:         object["content"].(string),
		MetaTitle:       object["metaTitle"].(string),
		MetaDescription: object["metaDescription"].(string),
	}, nil
}
