package engine

// notInitializedError signals an operation invoked before a model is loaded.
type notInitializedError struct{}

func (notInitializedError) Error() string {
	return "engine not initialized: call initialize first"
}

// ErrNotInitialized constructs a notInitializedError.
func ErrNotInitialized() error { return notInitializedError{} }

// IsNotInitialized reports whether err indicates a missing initialize call.
func IsNotInitialized(err error) bool {
	_, ok := err.(notInitializedError)
	return ok
}

// requestInFlightError signals a generation request reusing the id of one
// that is still running.
type requestInFlightError struct{ id string }

func (e requestInFlightError) Error() string {
	return "request id already in flight: " + e.id
}

// ErrRequestInFlight constructs a requestInFlightError.
func ErrRequestInFlight(id string) error { return requestInFlightError{id: id} }

// IsRequestInFlight reports whether err indicates a duplicate live request id.
func IsRequestInFlight(err error) bool {
	_, ok := err.(requestInFlightError)
	return ok
}

// unknownPresetError signals an initialize request naming a preset that is
// not in the registry.
type unknownPresetError struct{ name string }

func (e unknownPresetError) Error() string { return "unknown model preset: " + e.name }

// ErrUnknownPreset constructs an unknownPresetError.
func ErrUnknownPreset(name string) error { return unknownPresetError{name: name} }

// IsUnknownPreset reports whether err indicates an unrecognized preset name.
func IsUnknownPreset(err error) bool {
	_, ok := err.(unknownPresetError)
	return ok
}
