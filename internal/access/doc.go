// Package access reads and writes fields uniformly across the plain and
// persistent container families of package ir.
//
// The denormalizer never switches on container types itself. It asks For(v)
// for the Accessor matching the value it is about to rebuild and uses that
// accessor for every field read and write, and for copies.
//
//   - Plain: IRObject / IRArray. Set mutates in place; Copy is shallow.
//   - Persistent: *IRMap / *IRList. Set returns a new value; Copy is identity.
package access
