// Package payload models operation payloads as a closed set of shapes and
// converts them to and from flat field lists.
//
// A Value is one of Null, String, Number, Bool, Map, Sequence or File.
// Flatten turns a Value into one Field per leaf, each addressed by a
// fieldpath.Path; Rebuild is its inverse:
//
//	fields, err := payload.Flatten(op, fieldpath.New("data"))
//	...
//	v, err := payload.Rebuild(fields)
//
// Flat field order never matters. Sequence order is carried by the index
// segments of each path.
//
// # Index or key?
//
// "items[0]" may address the first item of a sequence or the key "0" of a
// map. Rebuild reads a container whose keys are exactly 0..n-1 as a
// sequence. Callers that know the destination layout pass a Shape through
// WithTemplate; the template always wins.
package payload
