// Package widget holds the state of an upload field: which files the user
// picked, which preview resources are outstanding, and what value the
// owning form should submit.
//
// A slot moves Empty → Previewing when a file is dropped and Previewing →
// Committed when the owner calls Commit after a successful submit. Clear
// returns a slot to Empty by removing it. Previews and values are kept
// apart: a slot can hold a value without a preview, and the preview of a
// slot is never submitted.
//
// The widget never writes into form state. It reports every change as a
// ValueChanged message:
//
//	w := widget.New("image", widget.ModeFor("[File]"),
//	    widget.WithPreviewer(widget.NewURLPreviewer()),
//	    widget.OnChange(func(ev widget.ValueChanged) {
//	        vars[ev.Name] = ev.Value
//	    }),
//	)
//	defer w.Close()
package widget
