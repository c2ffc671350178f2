// Package errors provides the error catalog for filebridge.
//
// Every failure the bridge can report has a stable code (e.g. "FB100") that
// maps to:
//   - a category (transport, path, payload, schema, stream, config, cli)
//   - a short message and a longer explanation
//   - the HTTP status the server answers with
//   - a documentation URL
//
// # Usage
//
// Describe maps errors returned by the upload, fieldpath, payload and scalar
// packages to their catalog entry, keeping the original error wrapped:
//
//	be := errors.Describe(err)
//	w.WriteHeader(be.Status)
//	be.WriteJSON(w)
//	// {"errors":[{"message":"Field path collision: ...",
//	//   "extensions":{"code":"FB111","category":"path","path":"data[variables][a]"}}]}
//
// The CLI prints the same entries for humans:
//
//	errors.New("FB160").WithDetail(`expected "var=path", got "photo"`).Format()
package errors
