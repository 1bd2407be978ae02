package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// landmarkSchemaTmpl is the artifact shape: an array of frames, each frame an
// array of exactly N landmark objects with the four numeric fields.
const landmarkSchemaTmpl = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "array",
		"minItems": %d,
		"maxItems": %d,
		"items": {
			"type": "object",
			"required": ["x", "y", "z", "visibility"],
			"properties": {
				"x": {"type": "number"},
				"y": {"type": "number"},
				"z": {"type": "number"},
				"visibility": {"type": "number"}
			}
		}
	}
}`

// PoseValidator checks client-supplied landmark sequences before they are
// persisted as artifacts.
type PoseValidator struct {
	schema *jsonschema.Schema
}

func NewPoseValidator(landmarkCount int) (*PoseValidator, error) {
	raw := fmt.Sprintf(landmarkSchemaTmpl, landmarkCount, landmarkCount)
	schema, err := jsonschema.CompileString("landmark_sequence.json", raw)
	if err != nil {
		return nil, fmt.Errorf("compile landmark schema: %w", err)
	}
	return &PoseValidator{schema: schema}, nil
}

func (v *PoseValidator) Validate(raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("malformed landmark JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("landmark sequence rejected: %w", err)
	}
	return nil
}
