package scalar

import (
	"errors"
	"testing"
)

// FuzzCheckInlineLiterals tests that arbitrary query text never panics and
// only fails with the documented error types.
func FuzzCheckInlineLiterals(f *testing.F) {
	f.Add(`mutation ($f: File!) { upload(file: $f) { id } }`)
	f.Add(`mutation { upload(file: "a.png") }`)
	f.Add(`mutation { upload(file: [$a, {k: [1, 2.5e3]}]) }`)
	f.Add("mutation {\n  upload(file: \"\"\"block\"\"\")\n}")
	f.Add(`query ($f: [File] = [null, "x"]) { upload(file: $f) @skip(if: false) }`)
	f.Add(`fragment F on Post { upload(file: ENUM) } { ...F }`)
	f.Add(`{ upload(file: "unterminated) }`)
	f.Add("{ é }")

	f.Fuzz(func(t *testing.T, query string) {
		err := CheckInlineLiterals(query, "upload.file")
		if err == nil {
			return
		}
		var syn *SyntaxError
		var lit *LiteralNotAllowedError
		switch {
		case errors.As(err, &syn):
			if syn.Offset > len(query) {
				t.Fatalf("offset %d beyond query of %d bytes", syn.Offset, len(query))
			}
		case errors.As(err, &lit):
			if lit.Scalar != FileName {
				t.Fatalf("scalar = %q, want %q", lit.Scalar, FileName)
			}
		default:
			t.Fatalf("unexpected error type %T: %v", err, err)
		}
	})
}
