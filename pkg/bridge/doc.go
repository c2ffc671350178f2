// Package bridge is the server side of the upload bridge.
//
// The middleware recognizes multipart/form-data requests, spools their file
// parts into an upload.Store, rebuilds the nested operation from the
// bracket-path field names, and hands it to the protocol handler as if it
// had arrived as JSON. File leaves become *upload.File handles:
//
//	store, _ := upload.NewDiskStore(os.TempDir())
//	b := bridge.New(bridge.Config{}, store)
//
//	r := chi.NewRouter()
//	bridge.Mount(r, "/graphql", b, graphqlHandler)
//
// Inside the handler:
//
//	op, ok := bridge.OperationFromContext(r.Context())
//	img, _ := op.Variables.Get("image") // payload.Value of kind File
//
// Requests that are not multipart pass through untouched. A multipart
// request that cannot be decoded is answered with 4xx and a JSON body:
//
//	{"errors":[{"message":"...","extensions":{"code":"FB111","path":"data[variables][a]"}}]}
package bridge
