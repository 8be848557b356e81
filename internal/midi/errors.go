package midi

import "fmt"

// FormatError reports a Standard MIDI File that cannot be parsed: a wrong
// chunk signature, a header that is too short, or a chunk or event running
// past the end of the data.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("midi: %v at offset %d", e.Reason, e.Offset)
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
