// Package yamlutil is the single entry point to the YAML library, used by the
// configuration loader, the file-backed store and CLI form data.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Size limits for YAML inputs.
const (
	MaxConfigSize   = 1 << 20
	MaxSnapshotSize = 64 << 20
)

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

func check(data []byte, v any, limit int) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), limit)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// UnmarshalConfig decodes a configuration file. Unknown fields are errors so
// typos in keys surface instead of being ignored.
func UnmarshalConfig(data []byte, v any) error {
	if err := check(data, v, MaxConfigSize); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalSnapshot decodes a store snapshot. Unknown fields are tolerated so
// older binaries can read files written by newer ones.
func UnmarshalSnapshot(data []byte, v any) error {
	if err := check(data, v, MaxSnapshotSize); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalData decodes form values. JSON input is accepted as YAML.
func UnmarshalData(data []byte, v any) error {
	if err := check(data, v, MaxSnapshotSize); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// Marshal encodes v, writing multi-line strings as literal blocks.
func Marshal(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return out, nil
}
