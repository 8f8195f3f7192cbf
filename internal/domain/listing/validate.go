package listing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Validator checks raw payloads against the vocabulary before they reach the
// evaluation core.  The vocabulary is compiled into a JSON Schema once at
// construction; per-request validation is a single schema pass plus the
// conditional checks JSON Schema draft-04 cannot express.
type Validator struct {
	vocab  *Vocabulary
	schema *gojsonschema.Schema
}

// NewValidator compiles the vocabulary into a validator.
func NewValidator(vocab *Vocabulary) (*Validator, error) {
	doc := buildSchemaDocument(vocab)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "compile vocabulary schema")
	}
	return &Validator{vocab: vocab, schema: schema}, nil
}

func buildSchemaDocument(vocab *Vocabulary) map[string]interface{} {
	props := make(map[string]interface{}, len(vocab.Fields()))
	for _, f := range vocab.Fields() {
		p := map[string]interface{}{"type": f.Type}
		if f.Min != nil {
			p["minimum"] = *f.Min
		}
		// Yen amounts have no meaningful upper bound; everything else
		// keeps its declared cap.
		if f.Max != nil && f.Unit != "yen" {
			p["maximum"] = *f.Max
		}
		if len(f.Enum) > 0 {
			enum := make([]interface{}, len(f.Enum))
			for i, v := range f.Enum {
				enum[i] = v
			}
			p["enum"] = enum
		}
		props[f.Key] = p
	}
	doc := map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if req := vocab.RequiredKeys(); len(req) > 0 {
		doc["required"] = req
	}
	return doc
}

// Validate checks a payload and returns a coded error describing every
// violation at once, so a caller can fix a bad request in one round trip.
func (v *Validator) Validate(payload map[string]interface{}) error {
	if payload == nil {
		return errors.New(errors.CodeInputInvalid, "payload is empty")
	}
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CodeInputInvalid, "validate payload")
	}
	if !result.Valid() {
		return schemaError(result.Errors())
	}
	return v.validateConditional(payload)
}

func schemaError(violations []gojsonschema.ResultError) error {
	code := errors.CodeInputInvalid
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		switch v.Type() {
		case "additional_property_not_allowed":
			code = errors.CodeInputUnknownField
		case "required":
			if code == errors.CodeInputInvalid {
				code = errors.CodeInputMissingField
			}
		}
		msgs = append(msgs, v.String())
	}
	sort.Strings(msgs)
	return errors.New(code, strings.Join(msgs, "; "))
}

// validateConditional enforces cross-field rules the schema cannot carry.
func (v *Validator) validateConditional(payload map[string]interface{}) error {
	hub, _ := payload[FieldHubStation].(string)
	if hub == "other" {
		name, _ := payload[FieldHubStationOther].(string)
		if strings.TrimSpace(name) == "" {
			return errors.New(errors.CodeInputMissingField,
				fmt.Sprintf("%s is required when %s is %q", FieldHubStationOther, FieldHubStation, "other"))
		}
	}
	return nil
}
