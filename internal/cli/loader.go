package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// LoadError represents an error that occurred while reading command input.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema compiles the schema document at path and selects the node to
// denormalize with: the parsed root reference when given, else the
// document's root.
func LoadSchema(path, rootRef string) (schema.Node, *schema.Catalog, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "schema file not found"}
	}

	catalog, err := schema.LoadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
	}

	if rootRef == "" {
		return catalog.Root, catalog, nil
	}
	ref, err := ParseRootRef(rootRef)
	if err != nil {
		return nil, nil, err
	}
	node, err := catalog.Resolve(ref)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
	}
	return node, catalog, nil
}

// ParseRootRef parses a reference written in schema document syntax:
// "books", "[books]" or "{featured: [books]}".
func ParseRootRef(s string) (any, error) {
	var ref any
	if err := yaml.Unmarshal([]byte(s), &ref); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid root reference %q: %v", s, err)}
	}
	if ref == nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: "root reference is empty"}
	}
	return ref, nil
}

// ParseValue parses a JSON value given on the command line. Numbers must be
// integers.
func ParseValue(s string) (ir.IRValue, error) {
	v, err := decodeJSON(strings.NewReader(s))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid value %q: %v", s, err)}
	}
	return v, nil
}

// LoadStoreFile reads an entity store (partition -> id -> entity) from a
// JSON or YAML file, chosen by extension.
func LoadStoreFile(path string) (ir.IRValue, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "store file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
	}

	var store ir.IRValue
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw any
		if err = yaml.Unmarshal(data, &raw); err == nil {
			store, err = ir.FromAny(stringKeys(raw))
		}
	default:
		store, err = decodeJSON(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Path: path, Message: err.Error()}
	}

	if err := checkStoreShape(store); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Path: path, Message: err.Error()}
	}
	return store, nil
}

// checkStoreShape verifies the two structured levels of an entity store.
func checkStoreShape(store ir.IRValue) error {
	if !access.IsStructured(store) {
		return fmt.Errorf("expected a map of partitions, got %T", store)
	}
	acc := access.For(store)
	for _, p := range acc.Fields(store) {
		part, _ := acc.Get(store, p)
		if !access.IsStructured(part) {
			return fmt.Errorf("partition %q: expected a map of entities, got %T", p, part)
		}
	}
	return nil
}

func decodeJSON(r io.Reader) (ir.IRValue, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return ir.FromAny(raw)
}

// stringKeys rewrites YAML mappings with non-string keys (ids written as
// bare integers) into string-keyed maps.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = stringKeys(elem)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = stringKeys(elem)
		}
		return out
	case []any:
		for i, elem := range val {
			val[i] = stringKeys(elem)
		}
		return val
	default:
		return v
	}
}
