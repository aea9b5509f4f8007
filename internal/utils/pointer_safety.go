package utils

// Value dereferences v, yielding the zero value for a nil pointer.
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Ptr returns a pointer to v. Handy for taking the address of a literal or
// a loop variable's copy.
func Ptr[T any](v T) *T {
	return &v
}
