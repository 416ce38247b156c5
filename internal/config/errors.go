package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidKey indicates a key that cannot be stored in the config file.
	ErrInvalidKey = errors.New("invalid config key")

	// ErrUnknownKey indicates a key that is not a recognized setting.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a value that does not parse or is out of range.
	ErrInvalidValue = errors.New("invalid config value")
)
