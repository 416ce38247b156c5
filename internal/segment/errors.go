package segment

import "errors"

// ErrMalformed indicates a work-item line is not of the form <SOURCE_ID>_<START_MS>.
var ErrMalformed = errors.New("malformed segment line")
