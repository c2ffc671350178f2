package payload

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/filebridge/pkg/upload"
)

func TestFromJSON_KeepsNumberLiterals(t *testing.T) {
	v, err := FromJSON([]byte(`{"big": 12345678901234567890, "f": 1.50, "list": [1, "two", null, false]}`))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got := v.Map()["big"].Num(); got != "12345678901234567890" {
		t.Errorf("big = %q", got)
	}
	if got := v.Map()["f"].Num(); got != "1.50" {
		t.Errorf("f = %q", got)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"big":12345678901234567890,"f":1.50,"list":[1,"two",null,false]}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestFromJSON_RejectsTrailingData(t *testing.T) {
	if _, err := FromJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
	if _, err := FromJSON([]byte(`hello`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMarshalJSON_FileLeaf(t *testing.T) {
	f := upload.FromReader("a.png", "image/png", 10, io.NopCloser(strings.NewReader("")))
	v := Map(map[string]Value{"img": File(f), "s": String("<tag>")})

	out, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"img":{"filename":"a.png","contentType":"image/png","size":10},"s":"<tag>"}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestFromAnyToAny(t *testing.T) {
	f := upload.FromReader("a", "", -1, io.NopCloser(strings.NewReader("")))
	in := map[string]any{
		"n":     3,
		"f":     2.5,
		"s":     "x",
		"b":     true,
		"nil":   nil,
		"file":  f,
		"list":  []any{json.Number("1"), "a"},
		"files": []*upload.File{f},
	}
	v, err := FromAny(in)
	if err != nil {
		t.Fatalf("FromAny() error = %v", err)
	}

	want := map[string]any{
		"n":     json.Number("3"),
		"f":     json.Number("2.5"),
		"s":     "x",
		"b":     true,
		"nil":   nil,
		"file":  f,
		"list":  []any{json.Number("1"), "a"},
		"files": []any{f},
	}
	if diff := cmp.Diff(want, v.ToAny(), cmp.Comparer(func(a, b *upload.File) bool { return a == b })); diff != "" {
		t.Errorf("ToAny() mismatch (-want +got):\n%s", diff)
	}

	if _, err := FromAny(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestValue_FilesAndHasFiles(t *testing.T) {
	a := upload.FromReader("a", "", -1, io.NopCloser(strings.NewReader("")))
	b := upload.FromReader("b", "", -1, io.NopCloser(strings.NewReader("")))
	v := Map(map[string]Value{
		"z": Sequence(File(b)),
		"a": Map(map[string]Value{"x": File(a)}),
		"s": String("x"),
	})
	if !v.HasFiles() {
		t.Fatal("HasFiles() = false")
	}
	files := v.Files()
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("Files() = %v", files)
	}
	if Map(map[string]Value{"s": String("x")}).HasFiles() {
		t.Error("HasFiles() = true for file-free value")
	}
}

func TestValue_EqualDistinguishesKinds(t *testing.T) {
	if String("1").Equal(Int(1)) {
		t.Error(`String("1") should not equal Int(1)`)
	}
	if Map(nil).Equal(Sequence()) {
		t.Error("empty map should not equal empty sequence")
	}
	if !Null().Equal(Value{}) {
		t.Error("zero Value should be Null")
	}
	if File(nil).Kind() != KindNull {
		t.Error("File(nil) should be Null")
	}
}
