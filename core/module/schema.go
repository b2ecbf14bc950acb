package module

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/video"
)

const contentDataField = "content_data"

var contentSchemas = map[ContentType]string{
	ContentEbook: `{
		"type": "object",
		"properties": {
			"ebook_id": {"type": "string"},
			"document_url": {"type": "string", "format": "uri"},
			"body": {"type": "string"},
			"pages": {"type": "integer", "minimum": 1}
		}
	}`,
	ContentVideo: `{
		"type": "object",
		"required": ["youtube_url"],
		"properties": {
			"youtube_url": {"type": "string", "minLength": 1},
			"duration_minutes": {"type": "integer", "minimum": 0}
		}
	}`,
	ContentGame: `{
		"type": "object",
		"properties": {
			"game_url": {"type": "string", "format": "uri"},
			"instructions": {"type": "string"}
		}
	}`,
	ContentQuiz: `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
			"questions": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["question", "options", "answer_index"],
					"properties": {
						"question": {"type": "string", "minLength": 1},
						"options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
						"answer_index": {"type": "integer", "minimum": 0}
					}
				}
			}
		}
	}`,
}

var compiledSchemas = make(map[ContentType]*gojsonschema.Schema, len(contentSchemas))

func init() {
	for ct, src := range contentSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("compiling %s content schema: %v", ct, err))
		}
		compiledSchemas[ct] = schema
	}
}

// ValidateContentData checks data against the JSON schema of ct.
// Video content must also reference a resolvable YouTube video.
func ValidateContentData(ct ContentType, data []byte) error {
	schema, ok := compiledSchemas[ct]
	if !ok {
		return fieldError("unknown content type")
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fieldError("must be a JSON object")
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fieldError(strings.Join(msgs, "; "))
	}

	if ct == ContentVideo {
		var ref struct {
			YouTubeURL string `json:"youtube_url"`
		}
		_ = json.Unmarshal(data, &ref)
		if _, ok := video.ExtractID(ref.YouTubeURL); !ok {
			return fieldError("youtube_url: invalid YouTube reference")
		}
	}
	return nil
}

func fieldError(msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: contentDataField, Error: msg})
}
