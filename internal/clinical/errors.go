package clinical

import "errors"

// ErrEmptyFieldSet indicates extraction produced no non-empty field.
var ErrEmptyFieldSet = errors.New("field set has no content")
