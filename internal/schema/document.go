package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a schema graph.
//
//	entities:
//	  books:   { fields: { author: authors, reviews: [reviews] } }
//	  authors: { id_attribute: slug, fields: { books: [books] } }
//	  reviews: {}
//	root: books
//
// A field reference is one of:
//   - a string naming an entity
//   - a one-element list: a collection of the element reference
//   - a map with a "union" key: tag -> reference, plus optional "schema_attribute"
//   - any other map: a composite of references
type Document struct {
	Entities map[string]EntityDocument `yaml:"entities" json:"entities"`
	Root     any                       `yaml:"root,omitempty" json:"root,omitempty"`
}

// EntityDocument declares one entity partition.
type EntityDocument struct {
	IDAttribute string         `yaml:"id_attribute,omitempty" json:"id_attribute,omitempty"`
	Fields      map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Catalog is a compiled schema document.
type Catalog struct {
	// Entities holds every declared entity by partition key.
	Entities map[string]*Entity

	// Root is the document's root reference, or nil if none was declared.
	Root Node
}

// Entity returns the entity declared under key.
func (c *Catalog) Entity(key string) (*Entity, bool) {
	e, ok := c.Entities[key]
	return e, ok
}

// Keys returns the declared partition keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Entities))
	for k := range c.Entities {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DocumentError reports a malformed schema document.
type DocumentError struct {
	Path    string // dotted location inside the document, e.g. "entities.books.fields.author"
	Message string
}

func (e *DocumentError) Error() string {
	if e.Path == "" {
		return "schema document: " + e.Message
	}
	return fmt.Sprintf("schema document: %s: %s", e.Path, e.Message)
}

// Parse compiles a YAML (or JSON) schema document.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DocumentError{Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	return Compile(&doc)
}

// ParseCUE compiles a CUE schema document. filename is used in error positions.
func ParseCUE(data []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, &DocumentError{Message: fmt.Sprintf("compile cue: %v", err)}
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, &DocumentError{Message: fmt.Sprintf("decode cue: %v", err)}
	}
	return Compile(&doc)
}

// LoadFile reads a schema document, choosing the format by extension:
// .cue files are CUE, everything else is parsed as YAML (a JSON superset).
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(data, path)
	}
	return Parse(data)
}

// Compile turns a Document into a Catalog. Entities are created first and
// their fields wired afterwards, so documents may be freely cyclic.
func Compile(doc *Document) (*Catalog, error) {
	if len(doc.Entities) == 0 {
		return nil, &DocumentError{Path: "entities", Message: "at least one entity is required"}
	}

	cat := &Catalog{Entities: make(map[string]*Entity, len(doc.Entities))}
	for key, ed := range doc.Entities {
		var opts []EntityOption
		if ed.IDAttribute != "" {
			opts = append(opts, WithIDAttribute(ed.IDAttribute))
		}
		cat.Entities[key] = NewEntity(key, opts...)
	}

	// Deterministic wiring order keeps error messages stable.
	for _, key := range cat.Keys() {
		ed := doc.Entities[key]
		fieldNames := make([]string, 0, len(ed.Fields))
		for name := range ed.Fields {
			fieldNames = append(fieldNames, name)
		}
		slices.Sort(fieldNames)

		fields := make(Composite, len(ed.Fields))
		for _, name := range fieldNames {
			path := "entities." + key + ".fields." + name
			n, err := cat.compileRef(ed.Fields[name], path)
			if err != nil {
				return nil, err
			}
			fields[name] = n
		}
		cat.Entities[key].Define(fields)
	}

	if doc.Root != nil {
		root, err := cat.compileRef(doc.Root, "root")
		if err != nil {
			return nil, err
		}
		cat.Root = root
	}

	return cat, nil
}

// Resolve compiles a reference against the catalog's entities, using the
// same syntax as document fields. Used for ad-hoc roots such as a CLI flag.
func (c *Catalog) Resolve(ref any) (Node, error) {
	return c.compileRef(ref, "ref")
}

func (c *Catalog) compileRef(ref any, path string) (Node, error) {
	switch val := ref.(type) {
	case string:
		e, ok := c.Entities[val]
		if !ok {
			return nil, &DocumentError{Path: path, Message: fmt.Sprintf("unknown entity %q", val)}
		}
		return e, nil

	case []any:
		if len(val) != 1 {
			return nil, &DocumentError{Path: path, Message: fmt.Sprintf("collection must have exactly one item schema, got %d", len(val))}
		}
		item, err := c.compileRef(val[0], path+"[0]")
		if err != nil {
			return nil, err
		}
		return ArrayOf(item), nil

	case map[string]any:
		if items, ok := val["union"]; ok {
			return c.compileUnion(val, items, path)
		}
		comp := make(Composite, len(val))
		for name, sub := range val {
			n, err := c.compileRef(sub, path+"."+name)
			if err != nil {
				return nil, err
			}
			comp[name] = n
		}
		return comp, nil

	default:
		return nil, &DocumentError{Path: path, Message: fmt.Sprintf("unsupported reference type %T", ref)}
	}
}

func (c *Catalog) compileUnion(decl map[string]any, items any, path string) (Node, error) {
	itemMap, ok := items.(map[string]any)
	if !ok || len(itemMap) == 0 {
		return nil, &DocumentError{Path: path + ".union", Message: "union must map tags to schemas"}
	}

	nodes := make(map[string]Node, len(itemMap))
	for tag, sub := range itemMap {
		n, err := c.compileRef(sub, path+".union."+tag)
		if err != nil {
			return nil, err
		}
		nodes[tag] = n
	}

	var opts []UnionOption
	if attr, ok := decl["schema_attribute"]; ok {
		s, ok := attr.(string)
		if !ok || s == "" {
			return nil, &DocumentError{Path: path + ".schema_attribute", Message: "must be a non-empty string"}
		}
		opts = append(opts, WithSchemaAttribute(s))
	}
	for k := range decl {
		if k != "union" && k != "schema_attribute" {
			return nil, &DocumentError{Path: path + "." + k, Message: "unexpected key in union declaration"}
		}
	}
	return UnionOf(nodes, opts...), nil
}
