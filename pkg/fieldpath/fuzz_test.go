package fieldpath

import "testing"

// FuzzDecode checks that every field name Decode accepts encodes back to
// the same text.
func FuzzDecode(f *testing.F) {
	for _, seed := range []string{
		"data",
		"data[variables][post][image]",
		"data[variables][files][0]",
		"a[007]",
		"a[-1][ ][x.y]",
		"a[b",
		"a]b",
		"[a]",
		"a[]",
		"a[[b]]",
		"a[b]c",
		"a\r\n",
		"ü[ß]",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		p, err := Decode(s)
		if err != nil {
			return
		}
		got, err := Encode(p)
		if err != nil {
			t.Fatalf("Encode(Decode(%q)) error: %v", s, err)
		}
		if got != s {
			t.Fatalf("Encode(Decode(%q)) = %q", s, got)
		}
		again, err := Decode(got)
		if err != nil || !again.Equal(p) {
			t.Fatalf("Decode(%q) = %v, %v; want %v", got, again, err, p)
		}
	})
}
