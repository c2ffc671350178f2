// Package client sends operations to a protocol endpoint, switching to a
// multipart body when the variables carry files.
//
//	f, _ := upload.OpenFile("./cat.png")
//	c := client.New("http://localhost:8080/graphql",
//	    client.WithHeader("Authorization", "Bearer "+token),
//	)
//	resp, err := c.Do(ctx, client.Operation{
//	    Query:     "mutation ($img: File!) { setAvatar(image: $img) }",
//	    Variables: payload.Map(map[string]payload.Value{"img": payload.File(f)}),
//	})
//
// Hooks added with WithHook run first, in order. The upload step runs after
// all of them, exactly once per Do, and the request is never retried.
package client
