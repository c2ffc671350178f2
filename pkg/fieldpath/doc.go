// Package fieldpath encodes nested-key paths as flat multipart field names.
//
// A path is an ordered list of segments. The first segment is written bare
// and every following segment is wrapped in brackets:
//
//	data[variables][post][images][0]
//
// Segments keep their textual form, so Decode(Encode(p)) returns p exactly.
// Whether a bracketed segment such as "0" is an array index or a map key
// cannot be known from the string alone; Segment.Index reports whether the
// text is a canonical index and leaves the decision to the caller.
//
// # Usage
//
//	p := fieldpath.New("data", "variables").AppendKey("post").AppendIndex(2)
//	name, err := fieldpath.Encode(p) // "data[variables][post][2]"
//
//	back, err := fieldpath.Decode(name)
//	back.Equal(p) // true
package fieldpath
