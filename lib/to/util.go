package to

// EmptyString dereferences s, reading nil as "".
func EmptyString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to v. FHIR model fields are pointer-typed to
// distinguish absent from zero values.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p, reading nil as the zero value.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
