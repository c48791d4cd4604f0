package store

import (
	"fmt"

	"github.com/roach88/denorm/internal/ir"
)

// marshalEntity converts an entity to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalEntity(entity ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(entity)
	if err != nil {
		return "", fmt.Errorf("marshal entity: %w", err)
	}
	return string(data), nil
}

// unmarshalEntity parses canonical JSON TEXT to an IRValue.
// Large integers survive via json.Number; floats are rejected.
func unmarshalEntity(data string) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return v, nil
}
