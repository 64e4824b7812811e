package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// O is a configuration object represented as a nested map, addressed with
// dot-notation paths.
type O map[string]any

// Get retrieves the value at a dot-notation path.
func (this O) Get(path string) (any, bool) {
	var current any = this
	for _, p := range strings.Split(path, ".") {
		m, ok := current.(O)
		if !ok {
			m, ok = current.(map[string]any)
			if !ok {
				return nil, false
			}
		}
		current, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetIntoOption is a functional option for GetInto.
type GetIntoOption func(*getIntoOptions)

type getIntoOptions struct {
	validate bool
}

// WithValidation runs "validate" struct tags after decoding.
func WithValidation() GetIntoOption {
	return func(o *getIntoOptions) {
		o.validate = true
	}
}

// GetInto decodes the value at path into target, a pointer. Fields map by
// "yaml" tag, input is weakly typed and duration strings like "30s" decode
// into time.Duration.
func (this O) GetInto(path string, target any, opts ...GetIntoOption) error {
	options := getIntoOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	val, ok := this.Get(path)
	if !ok {
		return fmt.Errorf("key not found: %s", path)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(val); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if options.validate {
		return Validate(target)
	}
	return nil
}

// Validate checks the "validate" struct tags of v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
