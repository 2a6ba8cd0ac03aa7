package runtime

// unavailableError signals a missing runtime dependency (e.g. llama.cpp not
// built in) so upper layers can report it without treating it as a crash.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/failed runtime
// dependency.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
