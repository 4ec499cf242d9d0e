package article

import (
	"fmt"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// MissingFieldError reports an article lacking a field required for tagging.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return internalerr.ErrMissingField
}
