package blueprint

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document keys with structural meaning. keyBlueprint introduces the
// metadata block inside a blueprint document; keyUseBlueprint introduces
// the instantiation directive inside an instance config. Both are
// bookkeeping keys and are stripped from substituted output.
const (
	keyBlueprint    = "blueprint"
	keyUseBlueprint = "use_blueprint"
	keyPath         = "path"
	keyInput        = "input"
	keySourceURL    = "source_url"
)

// Metadata is the blueprint: block of a document. Domain, name and the
// input declarations are required; everything else is optional.
type Metadata struct {
	Domain      string         `yaml:"domain" json:"domain" validate:"required,max=64"`
	Name        string         `yaml:"name" json:"name" validate:"required,max=200"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty" validate:"omitempty,max=2000"`
	Author      string         `yaml:"author,omitempty" json:"author,omitempty" validate:"omitempty,max=200"`
	Input       map[string]any `yaml:"input" json:"input" validate:"required"`
	MinVersion  string         `yaml:"min_version,omitempty" json:"min_version,omitempty" validate:"omitempty,max=64"`
	SourceURL   string         `yaml:"source_url,omitempty" json:"source_url,omitempty" validate:"omitempty,url"`
}

// validate is the shared schema validator. Field names in violation
// messages come from the yaml tags so they match what users wrote.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateDocument checks a raw document against the blueprint schema.
// On success it returns the decoded metadata; on failure it returns a
// humanized violation trail, one entry per problem.
func validateDocument(doc map[string]any) (*Metadata, []string) {
	raw, ok := doc[keyBlueprint]
	if !ok {
		return nil, []string{"blueprint: required block missing"}
	}
	if _, isMap := raw.(map[string]any); !isMap {
		return nil, []string{"blueprint: must be a mapping"}
	}

	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, []string{fmt.Sprintf("blueprint: %v", err)}
	}

	var trail []string
	if err := validate.Struct(meta); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				trail = append(trail, humanizeFieldError(fe))
			}
		} else {
			trail = append(trail, fmt.Sprintf("blueprint: %v", err))
		}
	}

	// Input descriptors are either empty or a mapping; validator tags
	// cannot express per-value shape inside a map[string]any.
	for _, name := range sortedKeys(meta.Input) {
		switch meta.Input[name].(type) {
		case nil, map[string]any:
		default:
			trail = append(trail, fmt.Sprintf("blueprint.input.%s: descriptor must be a mapping or empty", name))
		}
	}

	if len(trail) > 0 {
		return nil, trail
	}
	return meta, nil
}

// decodeMetadata converts the raw blueprint: block into a Metadata
// struct by round-tripping through YAML, which applies the same type
// coercions as file loading.
func decodeMetadata(raw any) (*Metadata, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata block: %w", err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid metadata block: %w", err)
	}
	return &meta, nil
}

// humanizeFieldError turns a validator field error into a message a
// blueprint author can act on, e.g. "blueprint.name: required field missing".
func humanizeFieldError(fe validator.FieldError) string {
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "required field missing"
	case "max":
		reason = fmt.Sprintf("exceeds maximum length of %s", fe.Param())
	case "url":
		reason = "must be a valid URL"
	default:
		reason = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return fmt.Sprintf("blueprint.%s: %s", fe.Field(), reason)
}

// sortedKeys returns the keys of m in lexical order for deterministic
// trails and serialized output.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
