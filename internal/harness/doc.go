// Package harness runs denormalization scenarios written in YAML.
//
// A scenario names a schema document, an initial entity store and a value to
// denormalize, then lists steps. Each step may patch the store (replacing the
// identity of the patched entities), denormalizes the value again, and keeps
// the result. Assertions compare results across steps by identity or by
// content, which makes the memoized walker's reuse guarantees testable
// end-to-end.
//
// # Scenario Format
//
//	name: partial_reuse
//	description: "Renaming the author rebuilds the book but keeps its reviews"
//	schema: library.yaml          # relative to the scenario file
//	root: books                   # optional; defaults to the document root
//	memoized: true
//	persistent: false             # freeze store and value into persistent containers
//	backend: memory               # memory | sqlite
//	store:
//	  books: { "1": { id: 1, author: 1, reviews: [1] } }
//	  ...
//	value: 1
//	steps:
//	  - name: initial
//	  - name: renamed
//	    patch:
//	      - { partition: authors, id: "1", set: { name: "New" } }
//	assertions:
//	  - { type: changed, step: renamed, against: initial, path: author }
//	  - { type: same, step: renamed, against: initial, path: reviews }
//	  - { type: equals, step: renamed, path: author.name, value: "New" }
//
// # Assertion Types
//
//   - same: the value at path is identical (ir.Same) in both steps
//   - changed: the value at path is not identical in both steps
//   - equals: the value at path is structurally equal to a literal
//   - matches_plain: the step result equals a fresh plain denormalization
//
// # Backends
//
// The memory backend patches the store value directly. The sqlite backend
// writes the store into an in-memory SQLite snapshot store and reloads it
// before every step; unchanged entities keep their identity across loads.
//
// # Golden Snapshots
//
// RunWithGolden stores the canonical JSON of every step result under
// testdata/golden/{name}.golden. Cycles render as {"$cycle":true}.
package harness
