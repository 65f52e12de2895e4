// Package proto holds the field registry and the per-frame protocol tree.
//
// Decoders register their protocols and fields once, in an initialization
// phase ended by Registry.Close. Each registration yields a dense FieldID.
// Per frame, a decoder creates a Tree, adds items decoded from a tvb.Buffer
// and hands the finished tree to consumers, which read it without mutating
// it. Destroy releases every value the tree holds.
//
// A Registry is safe for concurrent reads once closed. A Tree belongs to
// the goroutine building it.
package proto
