package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/upload"
)

var (
	// ErrClosed is returned by operations on a closed widget.
	ErrClosed = errors.New("widget: closed")

	// ErrNoFile is returned when Drop receives no usable file.
	ErrNoFile = errors.New("widget: no file to drop")
)

// SlotError reports an out-of-range slot index.
type SlotError struct {
	Index int
	Len   int
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("widget: slot %d out of range (have %d)", e.Index, e.Len)
}

// Mode is the cardinality of an upload field.
type Mode int

const (
	Single Mode = iota
	Multiple
)

func (m Mode) String() string {
	if m == Multiple {
		return "multiple"
	}
	return "single"
}

// ModeFor picks the mode from a field's declared type. List types such as
// "[File]" or "[File!]!" and the "array" datatype allow multiple files.
func ModeFor(datatype string) Mode {
	t := strings.TrimSpace(datatype)
	if strings.HasPrefix(t, "[") || strings.EqualFold(t, "array") {
		return Multiple
	}
	return Single
}

// State is the lifecycle state of one slot.
type State int

const (
	// Empty holds nothing.
	Empty State = iota
	// Previewing holds a dropped file that has not been submitted yet.
	Previewing
	// Committed holds a value the owner has accepted.
	Committed
)

func (s State) String() string {
	switch s {
	case Previewing:
		return "previewing"
	case Committed:
		return "committed"
	default:
		return "empty"
	}
}

// Preview is a displayable reference to a file's bytes, such as a URL.
type Preview string

// Previewer allocates and releases preview resources. Release is called
// exactly once for every preview Allocate returned.
type Previewer interface {
	Allocate(f *upload.File) (Preview, error)
	Release(p Preview)
}

// PreviousValue refers to a value stored before this widget was shown,
// typically the URL of an existing document.
type PreviousValue string

// ValueChanged is emitted whenever the committed value changes.
type ValueChanged struct {
	Name  string
	Value payload.Value
}

// Slot is a read-only view of one position in the widget.
type Slot struct {
	State    State
	File     *upload.File
	Previous PreviousValue
	Preview  Preview
}

type slot struct {
	state    State
	file     *upload.File
	previous PreviousValue
	preview  Preview
	owned    bool // preview came from the Previewer
}

// Option configures a Widget.
type Option func(*Widget)

// WithPreviewer sets the preview allocator. Without one, slots have no
// preview.
func WithPreviewer(p Previewer) Option {
	return func(w *Widget) {
		w.previewer = p
	}
}

// OnChange registers the receiver of ValueChanged messages.
func OnChange(fn func(ValueChanged)) Option {
	return func(w *Widget) {
		w.onChange = fn
	}
}

// WithFiles pre-populates committed slots from existing file handles.
func WithFiles(files ...*upload.File) Option {
	return func(w *Widget) {
		for _, f := range files {
			if f != nil {
				w.slots = append(w.slots, slot{state: Committed, file: f})
			}
		}
	}
}

// WithPrevious pre-populates committed slots from stored references.
func WithPrevious(refs ...PreviousValue) Option {
	return func(w *Widget) {
		for _, ref := range refs {
			if ref != "" {
				w.slots = append(w.slots, slot{state: Committed, previous: ref})
			}
		}
	}
}

// WithInitialPreview shows p for the first pre-populated slot. The widget
// does not own p and never releases it.
func WithInitialPreview(p Preview) Option {
	return func(w *Widget) {
		w.initialPreview = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		w.logger = l
	}
}

// Widget tracks the state of one upload field. It is not safe for
// concurrent use; calls follow user interaction.
type Widget struct {
	name           string
	mode           Mode
	previewer      Previewer
	onChange       func(ValueChanged)
	logger         *slog.Logger
	initialPreview Preview

	slots   []slot
	touched bool
	closed  bool
}

// New creates a widget for the field name.
func New(name string, mode Mode, opts ...Option) *Widget {
	w := &Widget{name: name, mode: mode}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default().With("component", "widget", "field", name)
	}
	if mode == Single && len(w.slots) > 1 {
		w.slots = w.slots[:1]
	}
	if w.initialPreview != "" && len(w.slots) > 0 {
		w.slots[0].preview = w.initialPreview
	}
	return w
}

// Name returns the field name.
func (w *Widget) Name() string { return w.name }

// Mode returns the widget's cardinality.
func (w *Widget) Mode() Mode { return w.mode }

// Len returns the number of occupied slots.
func (w *Widget) Len() int { return len(w.slots) }

// Touched reports whether the user has changed the value since the widget
// was created.
func (w *Widget) Touched() bool { return w.touched }

// Slots returns a snapshot of the occupied slots.
func (w *Widget) Slots() []Slot {
	out := make([]Slot, len(w.slots))
	for i, s := range w.slots {
		out[i] = Slot{State: s.state, File: s.file, Previous: s.previous, Preview: s.preview}
	}
	return out
}

// State returns the state of slot i, or Empty when i is not occupied.
func (w *Widget) State(i int) State {
	if i < 0 || i >= len(w.slots) {
		return Empty
	}
	return w.slots[i].state
}

// Drop records dropped files as pending values. In single mode only the
// first file is used and it replaces the current slot; in multiple mode
// each file is appended. A failed preview allocation leaves the slot
// without a preview but keeps the value.
func (w *Widget) Drop(files ...*upload.File) error {
	if w.closed {
		return ErrClosed
	}

	var dropped []*upload.File
	for _, f := range files {
		if f != nil {
			dropped = append(dropped, f)
		}
	}
	if len(dropped) == 0 {
		return ErrNoFile
	}

	if w.mode == Single {
		if len(w.slots) > 0 {
			w.release(&w.slots[0])
			w.slots = w.slots[:0]
		}
		dropped = dropped[:1]
	}

	for _, f := range dropped {
		s := slot{state: Previewing, file: f}
		w.allocate(&s)
		w.slots = append(w.slots, s)
	}

	w.changed()
	return nil
}

// Clear releases the preview of slot i and removes it. Later slots shift
// down by one.
func (w *Widget) Clear(i int) error {
	if w.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(w.slots) {
		return &SlotError{Index: i, Len: len(w.slots)}
	}

	w.release(&w.slots[i])
	w.slots = append(w.slots[:i], w.slots[i+1:]...)

	w.changed()
	return nil
}

// Commit marks every previewing slot as committed. The owner calls it
// after a successful submit.
func (w *Widget) Commit() {
	for i := range w.slots {
		if w.slots[i].state == Previewing {
			w.slots[i].state = Committed
		}
	}
}

// Close releases every outstanding preview. It is safe to call more than
// once.
func (w *Widget) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	for i := range w.slots {
		w.release(&w.slots[i])
	}
	return nil
}

// Value returns the field value. Single mode yields a File leaf, a String
// leaf for a previous value, or Null. Multiple mode yields a Sequence in
// slot order.
func (w *Widget) Value() payload.Value {
	if w.mode == Single {
		if len(w.slots) == 0 {
			return payload.Null()
		}
		return w.slots[0].value()
	}

	items := make([]payload.Value, len(w.slots))
	for i, s := range w.slots {
		items[i] = s.value()
	}
	return payload.Sequence(items...)
}

func (s slot) value() payload.Value {
	if s.file != nil {
		return payload.File(s.file)
	}
	if s.previous != "" {
		return payload.String(string(s.previous))
	}
	return payload.Null()
}

func (w *Widget) allocate(s *slot) {
	if w.previewer == nil {
		return
	}
	p, err := w.previewer.Allocate(s.file)
	if err != nil {
		w.logger.Warn("preview unavailable", "file", s.file.Filename, "error", err)
		return
	}
	s.preview = p
	s.owned = true
}

func (w *Widget) release(s *slot) {
	if s.owned && s.preview != "" {
		w.previewer.Release(s.preview)
	}
	s.preview = ""
	s.owned = false
}

func (w *Widget) changed() {
	w.touched = true
	if w.onChange != nil {
		w.onChange(ValueChanged{Name: w.name, Value: w.Value()})
	}
}
