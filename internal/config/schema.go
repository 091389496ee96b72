// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package config

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the generated schema.
const SchemaID = "https://flagdeck.dev/schemas/config.schema.json"

const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

var (
	compileOnce sync.Once
	compiled    *jschema.Schema
	compileErr  error
)

// GenerateSchema reflects the JSON Schema of Config.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     durationPattern,
					Description: "Go duration such as 500ms or 10s",
				}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "flagdeck configuration"
	schema.Description = "Schema for flagdeck config.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "marshal schema")
	}
	return data, nil
}

func compiledSchema() (*jschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = oops.Code(CodeInvalid).Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("config.schema.json", doc); err != nil {
			compileErr = oops.Code(CodeInvalid).Wrapf(err, "add schema resource")
			return
		}
		compiled, compileErr = c.Compile("config.schema.json")
		if compileErr != nil {
			compileErr = oops.Code(CodeInvalid).Wrapf(compileErr, "compile schema")
		}
	})
	return compiled, compileErr
}

// ValidateRaw checks a merged key map against the schema. Unknown keys and
// wrongly typed values are rejected.
func ValidateRaw(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	// Round-trip through JSON so every number looks the way the validator expects.
	data, err := json.Marshal(raw)
	if err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "encode config for validation")
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "decode config for validation")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "config does not match schema")
	}
	return nil
}
