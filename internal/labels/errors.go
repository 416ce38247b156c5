package labels

import "errors"

// ErrMalformedRow indicates a table row with too few columns.
var ErrMalformedRow = errors.New("malformed row")
