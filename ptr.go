package mcp

// Ptr returns a pointer to the given value.
// Useful for constructing optional fields in structs that use pointer types.
//
// Example:
//
//	tool := Tool{
//		Name:  "search",
//		Title: "Search",
//	}
//	_ = Ptr(tool) // optional-field helper
func Ptr[T any](v T) *T {
	return &v
}
