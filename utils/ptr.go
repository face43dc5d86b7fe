package utils

// This function allocates a value into the heap and returns
// a pointer to it
func HeapPtr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value, or the zero value for a nil pointer.
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
