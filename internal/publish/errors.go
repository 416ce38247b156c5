package publish

import "errors"

// Sentinel errors for publishing.
var (
	// ErrNoEndpoint indicates MINIO_ENDPOINT is not set.
	ErrNoEndpoint = errors.New("object store endpoint not configured (set MINIO_ENDPOINT)")

	// ErrNoBucket indicates an empty bucket name.
	ErrNoBucket = errors.New("bucket name cannot be empty")

	// ErrUnreachable indicates the object store could not be queried.
	ErrUnreachable = errors.New("object store unreachable")

	// ErrUploadFailed indicates at least one file could not be uploaded.
	ErrUploadFailed = errors.New("some uploads failed")
)
