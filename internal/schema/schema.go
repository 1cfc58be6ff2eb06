// Package schema validates raw capture payloads before they enter the
// pipeline, so malformed files fail with a precise location instead of
// a decode error downstream.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Compiled schemas, loaded once at startup.
var (
	keystrokeCapture = mustCompile("schemas/keystroke-capture-v1.schema.json")
	audioCapture     = mustCompile("schemas/audio-capture-v1.schema.json")
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// ValidateKeystrokeCapture checks a raw keystroke capture payload.
func ValidateKeystrokeCapture(data []byte) error {
	return validate(keystrokeCapture, data, "keystroke capture")
}

// ValidateAudioCapture checks a raw audio capture payload.
func ValidateAudioCapture(data []byte) error {
	return validate(audioCapture, data, "audio capture")
}

func validate(schema *jsonschema.Schema, data []byte, what string) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", what, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%s failed validation: %w", what, err)
	}
	return nil
}
