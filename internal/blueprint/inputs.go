package blueprint

import (
	"fmt"
	"sort"

	"github.com/nerrad567/gray-logic-blueprints/internal/placeholder"
)

// Inputs binds a Blueprint to one caller-supplied set of placeholder
// values, carried inside the instance config's use_blueprint section.
// Inputs are short-lived: constructed per instantiation, validated,
// substituted, discarded. They are never cached, and the Blueprint
// must outlive them.
//
// Obtain Inputs through DomainRegistry.InstantiateFromConfig, which
// also validates the instance config shape.
type Inputs struct {
	blueprint *Blueprint
	config    map[string]any
}

// NewInputs binds a blueprint to an instance config. The config must
// contain a use_blueprint section with path and input fields; configs
// that arrive through InstantiateFromConfig are already shape-checked.
func NewInputs(bp *Blueprint, configWithInputs map[string]any) *Inputs {
	return &Inputs{blueprint: bp, config: configWithInputs}
}

// Blueprint returns the bound blueprint.
func (in *Inputs) Blueprint() *Blueprint {
	return in.blueprint
}

// Values returns the supplied placeholder values from the instance
// config's use_blueprint.input section. A malformed config yields nil,
// which Validate then reports as every placeholder missing.
func (in *Inputs) Values() map[string]any {
	section, ok := in.config[keyUseBlueprint].(map[string]any)
	if !ok {
		return nil
	}
	values, ok := section[keyInput].(map[string]any)
	if !ok {
		return nil
	}
	return values
}

// Validate checks that the supplied values cover every placeholder the
// blueprint references. It must be called before Substitute, which
// does not re-validate.
func (in *Inputs) Validate() error {
	values := in.Values()

	var missing []string
	for name := range in.blueprint.placeholders {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingPlaceholderError{
			Domain:        in.blueprint.Domain(),
			BlueprintName: in.blueprint.Name(),
			Missing:       missing,
		}
	}
	return nil
}

// Substitute produces the final configuration: the blueprint body with
// every placeholder replaced by its supplied value, merged over the
// caller's instance config. The use_blueprint directive and the
// blueprint metadata block are stripped from the result; they drive
// instantiation and are not part of the produced configuration.
func (in *Inputs) Substitute() (map[string]any, error) {
	processed, err := placeholder.Substitute(documentBody(in.blueprint.doc), in.Values())
	if err != nil {
		return nil, err
	}

	combined := make(map[string]any, len(in.config)+len(processed))
	for k, v := range in.config {
		combined[k] = v
	}
	for k, v := range processed {
		combined[k] = v
	}
	delete(combined, keyUseBlueprint)
	delete(combined, keyBlueprint)
	return combined, nil
}

// validateInstanceConfig checks the shape of an instance config: a
// mapping holding a use_blueprint section with a non-empty string path
// and a mapping of input values. Returns the referenced blueprint path.
func validateInstanceConfig(domain string, config map[string]any) (string, error) {
	if config == nil {
		return "", &InvalidBlueprintInputsError{Domain: domain, Msg: "configuration must be a mapping"}
	}

	raw, ok := config[keyUseBlueprint]
	if !ok {
		return "", &InvalidBlueprintInputsError{Domain: domain, Msg: fmt.Sprintf("missing required %q section", keyUseBlueprint)}
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return "", &InvalidBlueprintInputsError{Domain: domain, Msg: fmt.Sprintf("%q must be a mapping", keyUseBlueprint)}
	}

	path, ok := section[keyPath].(string)
	if !ok || path == "" {
		return "", &InvalidBlueprintInputsError{Domain: domain, Msg: fmt.Sprintf("%q must be a non-empty string", keyUseBlueprint+"."+keyPath)}
	}

	if _, ok := section[keyInput].(map[string]any); !ok {
		return "", &InvalidBlueprintInputsError{Domain: domain, Msg: fmt.Sprintf("%q must be a mapping of input values", keyUseBlueprint+"."+keyInput)}
	}

	return path, nil
}
