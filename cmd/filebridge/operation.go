package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/upload"
	"github.com/vango-dev/filebridge/pkg/widget"
)

// operationFlags are the flags send and flatten share to describe an
// operation.
type operationFlags struct {
	query         string
	queryFile     string
	operationName string
	variables     string
	files         []string
	payloadKey    string
}

func (f *operationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Operation text")
	cmd.Flags().StringVar(&f.queryFile, "query-file", "", "Read the operation text from a file")
	cmd.Flags().StringVarP(&f.operationName, "operation-name", "o", "", "Operation name")
	cmd.Flags().StringVarP(&f.variables, "variables", "v", "", "Variables as a JSON object")
	cmd.Flags().StringArrayVarP(&f.files, "file", "f", nil, "Attach a file: var.path=./file (repeat a path, or end it with [], for a list)")
	cmd.Flags().StringVar(&f.payloadKey, "payload-key", payload.DefaultPayloadKey, "Top-level multipart field holding the operation")
}

// fileFlag is one parsed --file value.
type fileFlag struct {
	path     []string
	multiple bool
	file     string
}

// parseFileFlag parses "post.image=./cat.png". A path ending in "[]"
// always produces a list.
func parseFileFlag(s string) (fileFlag, error) {
	name, file, ok := strings.Cut(s, "=")
	if !ok || name == "" || file == "" {
		return fileFlag{}, fberrors.New("FB160").WithDetail("Got " + strconv.Quote(s) + ".")
	}

	var ff fileFlag
	if trimmed, found := strings.CutSuffix(name, "[]"); found {
		ff.multiple = true
		name = trimmed
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return fileFlag{}, fberrors.New("FB160").WithDetail("Empty path segment in " + strconv.Quote(s) + ".")
		}
		ff.path = append(ff.path, seg)
	}
	ff.file = file
	return ff, nil
}

// build assembles the operation. Files named by --file are collected per
// variable path with a widget, the same way a form field collects them.
func (f *operationFlags) build() (payload.Operation, error) {
	op := payload.Operation{
		Query:         f.query,
		OperationName: f.operationName,
		Variables:     payload.Map(nil),
	}
	if f.queryFile != "" {
		data, err := os.ReadFile(f.queryFile)
		if err != nil {
			return payload.Operation{}, err
		}
		op.Query = string(data)
	}
	if f.variables != "" {
		v, err := payload.FromJSON([]byte(f.variables))
		if err != nil {
			return payload.Operation{}, fberrors.New("FB122").Wrap(err).WithPath(f.payloadKey + "[variables]")
		}
		if v.Kind() != payload.KindMap {
			return payload.Operation{}, fberrors.New("FB122").
				WithDetail("--variables must be a JSON object.").
				WithPath(f.payloadKey + "[variables]")
		}
		op.Variables = v
	}

	widgets, err := f.collectFiles()
	if err != nil {
		return payload.Operation{}, err
	}
	for _, w := range widgets {
		path := strings.Split(w.Name(), ".")
		vars, err := setPath(op.Variables, path, w.Value())
		w.Commit()
		w.Close()
		if err != nil {
			return payload.Operation{}, err
		}
		op.Variables = vars
	}
	return op, nil
}

func (f *operationFlags) collectFiles() ([]*widget.Widget, error) {
	var (
		widgets []*widget.Widget
		byName  = map[string]*widget.Widget{}
		parsed  []fileFlag
		counts  = map[string]int{}
	)
	for _, s := range f.files {
		ff, err := parseFileFlag(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, ff)
		counts[strings.Join(ff.path, ".")]++
	}

	for _, ff := range parsed {
		name := strings.Join(ff.path, ".")
		w, ok := byName[name]
		if !ok {
			mode := widget.Single
			if ff.multiple || counts[name] > 1 {
				mode = widget.Multiple
			}
			w = widget.New(name, mode)
			byName[name] = w
			widgets = append(widgets, w)
		}

		file, err := upload.OpenFile(ff.file)
		if err != nil {
			return nil, fberrors.New("FB160").Wrap(err)
		}
		if err := w.Drop(file); err != nil {
			return nil, err
		}
	}
	return widgets, nil
}

// setPath returns root with v stored at path, creating maps as needed.
// A numeric segment indexes into an existing sequence.
func setPath(root payload.Value, path []string, v payload.Value) (payload.Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	key, rest := path[0], path[1:]

	switch root.Kind() {
	case payload.KindSequence:
		idx, err := strconv.Atoi(key)
		items := root.Seq()
		if err != nil || idx < 0 || idx > len(items) {
			return payload.Value{}, fberrors.New("FB160").
				WithDetail("Index " + strconv.Quote(key) + " is out of range for a list of " + strconv.Itoa(len(items)) + ".")
		}
		out := make([]payload.Value, len(items), len(items)+1)
		copy(out, items)
		if idx == len(items) {
			out = append(out, payload.Null())
		}
		child, err := setPath(out[idx], rest, v)
		if err != nil {
			return payload.Value{}, err
		}
		out[idx] = child
		return payload.Sequence(out...), nil

	case payload.KindMap, payload.KindNull:
		out := make(map[string]payload.Value, len(root.Map())+1)
		for k, existing := range root.Map() {
			out[k] = existing
		}
		child, err := setPath(out[key], rest, v)
		if err != nil {
			return payload.Value{}, err
		}
		out[key] = child
		return payload.Map(out), nil

	default:
		return payload.Value{}, fberrors.New("FB160").
			WithDetail("Cannot attach a file below a " + root.Kind().String() + " value at " + strconv.Quote(key) + ".")
	}
}
