package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for pollwatch.yml. Extension
// sections are allowed at the top level but not described.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		// Expand struct references instead of using $ref for cleaner base schema.
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	type BaseConfig struct {
		Version string       `yaml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
		Watch   WatchConfig  `yaml:"watch,omitempty" jsonschema:"description=Polling watcher settings"`
		Daemon  DaemonConfig `yaml:"daemon,omitempty" jsonschema:"description=Background daemon settings"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "pollwatch configuration"
	schema.Description = "Schema for pollwatch.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"
	// Unknown top-level keys are extension sections.
	schema.AdditionalProperties = nil

	return json.MarshalIndent(schema, "", "  ")
}
