package workforce

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// scenarioSchemaJSON describes the top-level shape §6 requires of a
// scenario document: config/plan/workers/actions, with the actions union
// tagged by "type". It is compiled once and reused by every call to
// ValidateScenario.
const scenarioSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["plan", "workers", "actions"],
  "properties": {
    "config": {"type": ["object", "null"]},
    "plan": {
      "type": "object",
      "required": ["tasks"],
      "properties": {
        "tasks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "capability"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "capability": {"type": "string", "minLength": 1},
              "dependsOn": {"type": "array", "items": {"type": "string"}},
              "maxAttempts": {"type": "integer", "minimum": 1},
              "priority": {"type": "integer"}
            }
          }
        }
      }
    },
    "workers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "capabilities"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "capabilities": {"type": "array", "items": {"type": "string"}},
          "maxConcurrent": {"type": "integer", "minimum": 1}
        }
      }
    },
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["schedule", "result", "cancel"]}
        }
      }
    }
  }
}`

var (
	scenarioSchemaOnce sync.Once
	scenarioSchema     *jsonschema.Schema
	scenarioSchemaErr  error
)

func compiledScenarioSchema() (*jsonschema.Schema, error) {
	scenarioSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(scenarioSchemaJSON))
		if err != nil {
			scenarioSchemaErr = fmt.Errorf("unmarshal scenario schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("scenario.json", doc); err != nil {
			scenarioSchemaErr = fmt.Errorf("add scenario schema resource: %w", err)
			return
		}
		scenarioSchema, scenarioSchemaErr = c.Compile("scenario.json")
	})
	return scenarioSchema, scenarioSchemaErr
}

// ValidateScenario checks a raw scenario document against the scenario
// schema before any of its contents reach LoadPlan/RegisterWorkers,
// giving malformed input a single InvalidConfig error kind (§7) instead
// of a field-by-field parse failure.
func ValidateScenario(raw json.RawMessage) error {
	schema, err := compiledScenarioSchema()
	if err != nil {
		return newErr(ErrInvalidConfig, "compile scenario schema: %s", err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return newErr(ErrInvalidConfig, "scenario is not valid JSON: %s", err)
	}
	if err := schema.Validate(doc); err != nil {
		return newErr(ErrInvalidConfig, "scenario failed schema validation: %s", err)
	}
	return nil
}
