package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decisionSchema constrains collaborator payloads before they reach Parse.
// Kept permissive on purpose: extra fields are allowed, only the shape of the
// fields the core consumes is pinned down.
const decisionSchema = `{
	"type": "object",
	"required": ["action"],
	"properties": {
		"action": {"type": "string", "enum": ["buy", "sell", "hold"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"reasoning": {"type": "string"},
		"stop_loss": {"type": "number", "minimum": 0},
		"take_profit": {"type": "number", "minimum": 0},
		"sell_ratio": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
		"position_pct": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decision.json", strings.NewReader(decisionSchema)); err != nil {
		panic(fmt.Sprintf("decision: schema resource: %v", err))
	}
	schema, err := compiler.Compile("decision.json")
	if err != nil {
		panic(fmt.Sprintf("decision: schema compile: %v", err))
	}
	return schema
}

// ValidateSchema checks a raw decision object against the schema. The input
// must already be fence-stripped, plain JSON.
func ValidateSchema(raw string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decision payload is not valid json: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("decision payload failed schema validation: %w", err)
	}
	return nil
}
