package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIConfigured  = errors.New("no API configured, use 'rdm config set api <url>' or --api")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrEmptyToken       = errors.New("token must not be empty")
)

// Validation errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format, expected table, json or yaml")
	ErrNoFilesGiven        = errors.New("at least one file is required")
	ErrFieldRequired       = errors.New("field is required")
)
