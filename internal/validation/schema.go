package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const conversationSchema = `{
	"type": "object",
	"properties": {
		"systemPrompt": {"type": ["string", "null"]},
		"maxTokens": {"type": "integer", "minimum": 1},
		"isConsultationRequest": {"type": ["boolean", "null"]},
		"messages": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["role", "content"],
				"properties": {
					"role": {"enum": ["user", "assistant"]},
					"content": {"type": "string"}
				}
			}
		}
	},
	"required": ["messages"]
}`

const consultationSchema = `{
	"type": "object",
	"definitions": {
		"text": {"type": ["string", "null"]}
	},
	"properties": {
		"isConsultationRequest": {"const": true},
		"assessmentData": {
			"type": "object",
			"required": ["businessData"],
			"properties": {
				"contactName": {"$ref": "#/definitions/text"},
				"businessName": {"$ref": "#/definitions/text"},
				"contactEmail": {"$ref": "#/definitions/text"},
				"contactPhone": {"$ref": "#/definitions/text"},
				"conversationHistory": {"$ref": "#/definitions/text"},
				"solutionProposal": {"$ref": "#/definitions/text"},
				"leadScore": {"type": ["integer", "null"]},
				"tokensUsed": {"type": ["integer", "null"], "minimum": 0},
				"dataCompleteness": {"type": ["number", "null"]},
				"businessData": {
					"type": "object",
					"properties": {
						"business_type": {"$ref": "#/definitions/text"},
						"business_location": {"$ref": "#/definitions/text"},
						"pain_points": {"$ref": "#/definitions/text"},
						"current_solution": {"$ref": "#/definitions/text"},
						"time_savings": {"$ref": "#/definitions/text"},
						"time_value": {"$ref": "#/definitions/text"}
					}
				}
			}
		}
	},
	"required": ["isConsultationRequest", "assessmentData"]
}`

// Error lists every schema violation found in a document.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return "validation: " + strings.Join(e.Violations, "; ")
}

// Validator checks inbound request bodies against the compiled schemas.
type Validator struct {
	conversation *gojsonschema.Schema
	consultation *gojsonschema.Schema
}

func New() (*Validator, error) {
	conv, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(conversationSchema))
	if err != nil {
		return nil, fmt.Errorf("validation: compile conversation schema: %w", err)
	}
	consult, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(consultationSchema))
	if err != nil {
		return nil, fmt.Errorf("validation: compile consultation schema: %w", err)
	}
	return &Validator{conversation: conv, consultation: consult}, nil
}

// ValidateConversation checks a conversation turn body.
func (v *Validator) ValidateConversation(body []byte) error {
	return validate(v.conversation, body)
}

// ValidateConsultation checks a consultation submission body.
func (v *Validator) ValidateConsultation(body []byte) error {
	return validate(v.consultation, body)
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	if schema == nil {
		return errors.New("validation: validator not initialized")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &Error{Violations: []string{"body is not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return &Error{Violations: violations}
}
