// Package upload is the multipart transport adapter of the file bridge.
//
// It is the only package that touches raw bytes. Everything above it works
// on structured values.
//
// # Server side
//
// Parse and ParseRequest read a multipart/form-data body part by part.
// Text parts are collected as strings. File parts are streamed into a Store
// (DiskStore or S3Store) as they arrive and exposed as *File handles, so a
// large upload never sits in memory and parts may come in any order:
//
//	form, err := upload.ParseRequest(r.Context(), r, upload.ParseOptions{Store: store})
//	if err != nil {
//	    var fe *upload.FormatError
//	    if errors.As(err, &fe) {
//	        // reject the request with 400
//	    }
//	    return err
//	}
//	defer form.Close() // releases files nobody consumed
//
// # Client side
//
// Encoder turns a list of fields into a streaming multipart body:
//
//	body, contentType, err := upload.Encoder{}.Encode(fields)
//	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
//	req.Header.Set("Content-Type", contentType)
//
// # File handles
//
// A *File is single-reader and single-pass. It opens its stream on the first
// Read and releases it on Close. Ownership moves with the handle: whoever
// holds it last must close it.
package upload
