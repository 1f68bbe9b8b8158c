package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/pollwatch/config"
	"github.com/grovetools/pollwatch/logging"
	"github.com/invopop/jsonschema"
)

// Run from the repository root: go run ./tools/schema-generator
func main() {
	base, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(base, &doc); err != nil {
		log.Fatalf("Error decoding base schema: %v", err)
	}

	// The logging section is an extension; its types live in the logging
	// package, which config cannot import.
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
	}
	loggingSchema := r.Reflect(&logging.Config{})
	loggingSchema.Version = ""
	loggingSchema.Description = "Logging configuration"

	properties, ok := doc["properties"].(map[string]interface{})
	if !ok {
		log.Fatalf("Base schema has no properties")
	}
	properties["logging"] = loggingSchema

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding schema: %v", err)
	}

	outputPath := filepath.Join("schema", "pollwatch.embedded.schema.json")
	if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated schema at %s", outputPath)
}
