package listing

import (
	"fmt"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Field types accepted by the vocabulary.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeBoolean = "boolean"
)

// FieldDef describes one input field of the listing vocabulary.  The spec
// bundle ships these as data so the accepted surface can evolve without a
// code change.
type FieldDef struct {
	Key      string   `json:"key"`
	Type     string   `json:"type"`
	Unit     string   `json:"unit,omitempty"`
	Required bool     `json:"required,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Label    string   `json:"label,omitempty"`
}

// Vocabulary is the closed set of input fields a payload may carry.
type Vocabulary struct {
	fields []FieldDef
	byKey  map[string]FieldDef
}

// NewVocabulary validates the field definitions and builds the lookup index.
func NewVocabulary(fields []FieldDef) (*Vocabulary, error) {
	if len(fields) == 0 {
		return nil, errors.New(errors.CodeSpecBundleInvalid, "vocabulary has no fields")
	}
	byKey := make(map[string]FieldDef, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return nil, errors.New(errors.CodeSpecBundleInvalid, "vocabulary field with empty key")
		}
		if _, dup := byKey[f.Key]; dup {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "duplicate vocabulary field %q", f.Key)
		}
		switch f.Type {
		case TypeInteger, TypeNumber, TypeString, TypeBoolean:
		default:
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "field %q has unknown type %q", f.Key, f.Type)
		}
		if len(f.Enum) > 0 && f.Type != TypeString {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "field %q declares enum values but is not a string field", f.Key)
		}
		byKey[f.Key] = f
	}
	return &Vocabulary{fields: fields, byKey: byKey}, nil
}

// Fields returns the definitions in declaration order.
func (v *Vocabulary) Fields() []FieldDef { return v.fields }

// Field looks up a definition by key.
func (v *Vocabulary) Field(key string) (FieldDef, bool) {
	f, ok := v.byKey[key]
	return f, ok
}

// Has reports whether key is a declared input field.
func (v *Vocabulary) Has(key string) bool {
	_, ok := v.byKey[key]
	return ok
}

// RequiredKeys returns the keys a payload must carry, in declaration order.
func (v *Vocabulary) RequiredKeys() []string {
	var keys []string
	for _, f := range v.fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// AllowedNames returns the union of input and derived field names.  Rule
// conditions and template tokens may reference exactly this set.
func (v *Vocabulary) AllowedNames() map[string]bool {
	names := make(map[string]bool, len(v.fields)+32)
	for _, f := range v.fields {
		names[f.Key] = true
	}
	for _, k := range DerivedFields() {
		names[k] = true
	}
	return names
}

func (f FieldDef) String() string {
	return fmt.Sprintf("%s(%s)", f.Key, f.Type)
}
