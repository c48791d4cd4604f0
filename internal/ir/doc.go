// Package ir provides the value universe shared by the denormalizer.
//
// Every value flowing through the engine is an IRValue: a sealed sum type
// with scalar variants and two container families. The plain family
// (IRObject, IRArray) is mutable Go maps and slices. The persistent family
// (*IRMap, *IRList) never mutates; updates return new values that share
// structure with the old ones.
//
// This package imports nothing internal. All other internal packages
// import ir.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Identity (Same) is distinct from equality (Equal); staleness checks
//     and structural sharing use identity only
//   - Canonical JSON sorts keys by UTF-16 code units (RFC 8785)
package ir
