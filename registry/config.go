package registry

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/utils"
)

// A Kind names a source model as "namespace:name", e.g. "fake:proximity".
type Kind string

// NewKind joins a namespace and a name.
func NewKind(namespace, name string) Kind {
	return Kind(namespace + ":" + name)
}

// Namespace returns the part before the colon.
func (k Kind) Namespace() string {
	namespace, _, _ := strings.Cut(string(k), ":")
	return namespace
}

// Name returns the part after the colon.
func (k Kind) Name() string {
	_, name, _ := strings.Cut(string(k), ":")
	return name
}

// Validate ensures both halves are present and well formed.
func (k Kind) Validate() error {
	namespace, name, ok := strings.Cut(string(k), ":")
	if !ok {
		return errors.Errorf("kind %q must look like namespace:name", k)
	}
	for _, part := range []string{namespace, name} {
		if !utils.ValidNameRegex.MatchString(part) {
			return errors.Wrapf(utils.ErrInvalidName(part), "kind %q", k)
		}
	}
	return nil
}

// A Config describes one source to construct.
type Config struct {
	Name       string             `json:"name"`
	Kind       Kind               `json:"kind"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`
	// Resources overrides the shared hardware toggles the kind holds while monitoring.
	Resources []string `json:"resources,omitempty"`

	ConvertedAttributes ConfigValidator `json:"-"`
}

// A ConfigValidator validates a kind's native configuration.
type ConfigValidator interface {
	Validate(path string) error
}

// ID returns the ID of the source this config builds.
func (conf *Config) ID() property.ID {
	return property.NewID(conf.Kind.Namespace(), conf.Kind.Name(), conf.Name)
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if !utils.ValidNameRegex.MatchString(conf.Name) {
		return goutils.NewConfigValidationError(path, utils.ErrInvalidName(conf.Name))
	}
	if conf.Kind == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "kind")
	}
	if err := conf.Kind.Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	for i, key := range conf.Resources {
		if key == "" {
			return errors.Errorf("%s.resources.%d: empty resource key", path, i)
		}
	}
	if conf.ConvertedAttributes != nil {
		return conf.ConvertedAttributes.Validate(path + ".attributes")
	}
	return nil
}

// NativeConfig returns the converted attributes of conf as C.
func NativeConfig[C any](conf Config) (C, error) {
	return utils.AssertType[C](conf.ConvertedAttributes)
}

// TransformAttributeMap uses an attribute map to transform attributes to the prescribed format.
func TransformAttributeMap[T any](attributes utils.AttributeMap) (T, error) {
	var out T

	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		// needs to be allocated then
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return out, errors.Errorf("unknown attributes %q", md.Unused)
	}
	return out, nil
}
