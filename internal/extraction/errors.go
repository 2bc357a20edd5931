package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrInputUnreadable matches every *InputError
	ErrInputUnreadable = errors.New("input unreadable")
	// ErrRecognitionFailed matches every *RecognitionError
	ErrRecognitionFailed = errors.New("recognition failed")
)

// InputError reports an input that is missing, corrupt or of an unsupported format
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInputUnreadable) true
func (e *InputError) Is(target error) bool {
	return target == ErrInputUnreadable
}

// RecognitionError reports an engine failure or an input without usable text.
// The extractor is not run for such inputs.
type RecognitionError struct {
	Path   string
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Engine == "" {
		return fmt.Sprintf("recognizing %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("recognizing %s with %s: %v", e.Path, e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRecognitionFailed) true
func (e *RecognitionError) Is(target error) bool {
	return target == ErrRecognitionFailed
}
