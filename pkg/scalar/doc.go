// Package scalar declares the File scalar and keeps file values out of
// query text.
//
// A File value only ever arrives through a variable that the upload bridge
// filled from a multipart part. Serialize and ParseValue pass the value
// through; ParseLiteral rejects every inline literal.
//
// Schema engines that cannot call ParseLiteral for a custom scalar can run
// CheckInlineLiterals before execution:
//
//	err := scalar.CheckInlineLiterals(query, "createPost.image")
//	var lit *scalar.LiteralNotAllowedError
//	if errors.As(err, &lit) {
//		// reject the request
//	}
package scalar
