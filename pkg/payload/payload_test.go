package payload

import (
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
	"github.com/vango-dev/filebridge/pkg/upload"
)

func testFile(name string) *upload.File {
	return upload.FromReader(name, "application/octet-stream", 4, io.NopCloser(strings.NewReader("data")))
}

func fieldsByName(t *testing.T, fields []Field) map[string]Field {
	t.Helper()
	out := make(map[string]Field, len(fields))
	for _, f := range fields {
		out[fieldpath.MustEncode(f.Path)] = f
	}
	return out
}

func TestFlatten_PostScenario(t *testing.T) {
	a := testFile("a.png")
	v := Map(map[string]Value{
		"post": Map(map[string]Value{
			"title": String("hi"),
			"image": File(a),
		}),
	})

	fields, err := Flatten(v, nil)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	byName := fieldsByName(t, fields)
	if len(byName) != 2 {
		t.Fatalf("got %d fields, want 2: %v", len(byName), byName)
	}
	if f := byName["post[title]"]; f.IsFile() || f.Text != `"hi"` {
		t.Errorf("post[title] = %+v", f)
	}
	if f := byName["post[image]"]; f.File != a {
		t.Errorf("post[image] = %+v, want file A", f)
	}

	back, err := Rebuild(fields)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if diff := cmp.Diff(v, back); diff != "" {
		t.Errorf("Rebuild(Flatten(v)) mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_LeafEncoding(t *testing.T) {
	v := Map(map[string]Value{
		"s":     String("<b>&"),
		"n":     Int(42),
		"f":     Float(1.5),
		"t":     Bool(true),
		"null":  Null(),
		"empty": Map(nil),
		"none":  Sequence(),
	})
	fields, err := Flatten(v, fieldpath.New("data"))
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	want := map[string]string{
		"data[s]":     `"<b>&"`,
		"data[n]":     `42`,
		"data[f]":     `1.5`,
		"data[t]":     `true`,
		"data[null]":  `null`,
		"data[empty]": `{}`,
		"data[none]":  `[]`,
	}
	got := map[string]string{}
	for name, f := range fieldsByName(t, fields) {
		got[name] = f.Text
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaf text mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_Errors(t *testing.T) {
	if _, err := Flatten(String("x"), nil); !errors.Is(err, ErrUnnamedLeaf) {
		t.Errorf("scalar root: err = %v, want ErrUnnamedLeaf", err)
	}
	if _, err := Flatten(File(testFile("a")), nil); !errors.Is(err, ErrUnnamedLeaf) {
		t.Errorf("file root: err = %v, want ErrUnnamedLeaf", err)
	}

	bad := Map(map[string]Value{"a[b": String("x")})
	_, err := Flatten(bad, nil)
	var syntaxErr *fieldpath.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("bracket key: err = %v, want *fieldpath.SyntaxError", err)
	}

	empty := Map(map[string]Value{"": String("x")})
	if _, err := Flatten(empty, nil); !errors.As(err, &syntaxErr) {
		t.Errorf("empty key: err = %v, want *fieldpath.SyntaxError", err)
	}
	injected := Map(map[string]Value{"a\r\nX-Evil: 1": String("x")})
	if _, err := Flatten(injected, fieldpath.New("data")); !errors.As(err, &syntaxErr) {
		t.Errorf("line break key: err = %v, want *fieldpath.SyntaxError", err)
	}
}

func TestRebuildFlatten_RoundTrip(t *testing.T) {
	a, b := testFile("a"), testFile("b")
	values := map[string]Value{
		"flat": Map(map[string]Value{"x": String("1"), "y": Int(1)}),
		"files in sequence": Map(map[string]Value{
			"data": Map(map[string]Value{
				"images": Sequence(File(a), File(b)),
			}),
		}),
		"nested sequences": Map(map[string]Value{
			"grid": Sequence(Sequence(Int(1), Int(2)), Sequence(), Sequence(Map(map[string]Value{"k": Null()}))),
		}),
		"json-looking strings": Map(map[string]Value{
			"s": String(`{"a":1}`),
			"n": String("3"),
			"t": String("true"),
		}),
		"empty containers": Map(map[string]Value{
			"m": Map(nil),
			"s": Sequence(),
			"x": Map(map[string]Value{"deep": Map(nil)}),
		}),
		"mixed": Map(map[string]Value{
			"data": Map(map[string]Value{
				"query": String("mutation($p: PostInput!) { createPost(post: $p) { id } }"),
				"variables": Map(map[string]Value{
					"p": Map(map[string]Value{
						"title":       String("hi"),
						"attachments": Sequence(Map(map[string]Value{"file": File(a), "caption": String("c")})),
						"tags":        Sequence(String("x"), String("y")),
						"score":       Float(-2.25e-3),
					}),
				}),
			}),
		}),
	}

	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			fields, err := Flatten(v, nil)
			if err != nil {
				t.Fatalf("Flatten() error = %v", err)
			}
			back, err := Rebuild(fields)
			if err != nil {
				t.Fatalf("Rebuild() error = %v", err)
			}
			if diff := cmp.Diff(v, back); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRebuild_OrderIndependent(t *testing.T) {
	v := Map(map[string]Value{
		"list": Sequence(Int(0), Int(1), Int(2), Int(3), Int(4), Int(5), Int(6), Int(7), Int(8), Int(9), Int(10), Int(11)),
		"map":  Map(map[string]Value{"a": Bool(true), "b": File(testFile("f"))}),
	})
	fields, err := Flatten(v, nil)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(fields), func(i, j int) { fields[i], fields[j] = fields[j], fields[i] })
		back, err := Rebuild(fields)
		if err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}
		if !back.Equal(v) {
			t.Fatalf("shuffle %d: Rebuild produced %s", i, mustJSON(t, back))
		}
	}
}

func TestRebuild_Collisions(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{
			name: "duplicate leaf",
			fields: []Field{
				{Path: fieldpath.New("a", "b"), Text: `1`},
				{Path: fieldpath.New("a", "b"), Text: `2`},
			},
		},
		{
			name: "file and text at same path",
			fields: []Field{
				{Path: fieldpath.New("a"), File: testFile("x")},
				{Path: fieldpath.New("a"), Text: `"x"`},
			},
		},
		{
			name: "leaf then container",
			fields: []Field{
				{Path: fieldpath.New("a"), Text: `1`},
				{Path: fieldpath.New("a", "b"), Text: `2`},
			},
		},
		{
			name: "container then leaf",
			fields: []Field{
				{Path: fieldpath.New("a", "b", "c"), Text: `2`},
				{Path: fieldpath.New("a", "b"), Text: `1`},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rebuild(tt.fields)
			var collision *CollisionError
			if !errors.As(err, &collision) {
				t.Fatalf("Rebuild() error = %v, want *CollisionError", err)
			}
		})
	}
}

func TestRebuild_PlainTextField(t *testing.T) {
	got, err := Rebuild([]Field{{Path: fieldpath.New("name"), Text: "not json"}})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	want := Map(map[string]Value{"name": String("not json")})
	if !got.Equal(want) {
		t.Errorf("got %s", mustJSON(t, got))
	}
}

func TestRebuild_JSONBlobField(t *testing.T) {
	f := testFile("f")
	got, err := Rebuild([]Field{
		{Path: fieldpath.New("data", "query"), Text: `"{ ping }"`},
		{Path: fieldpath.New("data", "variables"), Text: `{"n":1,"tags":["a"]}`},
		{Path: fieldpath.New("upload"), File: f},
	})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	want := Map(map[string]Value{
		"data": Map(map[string]Value{
			"query":     String("{ ping }"),
			"variables": Map(map[string]Value{"n": Int(1), "tags": Sequence(String("a"))}),
		}),
		"upload": File(f),
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRebuild_AmbiguousIndexKeys(t *testing.T) {
	v := Map(map[string]Value{
		"byID": Map(map[string]Value{"0": String("zero"), "1": String("one")}),
	})
	fields, err := Flatten(v, nil)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}

	// Without a template a dense numeric map is read back as a sequence.
	guessed, err := Rebuild(fields)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if guessed.Map()["byID"].Kind() != KindSequence {
		t.Fatalf("default rule: byID kind = %s, want sequence", guessed.Map()["byID"].Kind())
	}

	// The template restores the map.
	exact, err := Rebuild(fields, WithTemplate(ShapeOf(v)))
	if err != nil {
		t.Fatalf("Rebuild(template) error = %v", err)
	}
	if diff := cmp.Diff(v, exact); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}

	explicit, err := Rebuild(fields, WithTemplate(MapOf(map[string]*Shape{"byID": ValuesOf(nil)})))
	if err != nil {
		t.Fatalf("Rebuild(explicit) error = %v", err)
	}
	if !explicit.Equal(v) {
		t.Errorf("explicit template: got %s", mustJSON(t, explicit))
	}
}

func TestRebuild_TemplateRequiresDenseSequence(t *testing.T) {
	fields := []Field{
		{Path: fieldpath.New("items", "0"), Text: `1`},
		{Path: fieldpath.New("items", "2"), Text: `3`},
	}

	sparse, err := Rebuild(fields)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if sparse.Map()["items"].Kind() != KindMap {
		t.Errorf("sparse indices should stay a map without a template")
	}

	_, err = Rebuild(fields, WithTemplate(MapOf(map[string]*Shape{"items": SequenceOf(nil)})))
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Rebuild() error = %v, want *ShapeError", err)
	}
	if shapeErr.Path.String() != "items" {
		t.Errorf("ShapeError.Path = %s, want items", shapeErr.Path)
	}
}

func TestRebuild_RootStaysMap(t *testing.T) {
	got, err := Rebuild([]Field{{Path: fieldpath.New("0"), Text: `"a"`}})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if got.Kind() != KindMap {
		t.Errorf("root kind = %s, want map", got.Kind())
	}
}

func TestPartsRoundTrip(t *testing.T) {
	f := testFile("f")
	fields := []Field{
		{Path: fieldpath.New("data", "variables", "f"), File: f},
		{Path: fieldpath.New("data", "query"), Text: `"q"`},
	}
	parts, err := Parts(fields)
	if err != nil {
		t.Fatalf("Parts() error = %v", err)
	}
	if parts[0].Name != "data[variables][f]" || parts[0].File != f {
		t.Errorf("parts[0] = %+v", parts[0])
	}

	back, err := FromParts(parts)
	if err != nil {
		t.Fatalf("FromParts() error = %v", err)
	}
	if !back[1].Path.Equal(fields[1].Path) || back[1].Text != `"q"` {
		t.Errorf("back[1] = %+v", back[1])
	}

	_, err = FromParts([]upload.Field{{Name: "bad]"}})
	var syntaxErr *fieldpath.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("FromParts(bad) error = %v, want *fieldpath.SyntaxError", err)
	}
}

func TestExtractOperation(t *testing.T) {
	root := Map(map[string]Value{
		"data":  Map(map[string]Value{"query": String("{ a }")}),
		"extra": String("meta"),
	})
	op, err := ExtractOperation(root, "data")
	if err != nil {
		t.Fatalf("ExtractOperation() error = %v", err)
	}
	if op.Map()["query"].Str() != "{ a }" {
		t.Errorf("op = %s", mustJSON(t, op))
	}

	if _, err := ExtractOperation(root, "missing"); !errors.Is(err, ErrMissingPayload) {
		t.Errorf("missing key: err = %v, want ErrMissingPayload", err)
	}
}

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	data, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	return string(data)
}
