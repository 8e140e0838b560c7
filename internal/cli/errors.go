package cli

import "errors"

// ErrAPIKeyMissing indicates OPENAI_API_KEY is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY is not set")

// ErrDatabaseURLMissing indicates DATABASE_URL is not set.
var ErrDatabaseURLMissing = errors.New("DATABASE_URL is not set")

// ErrFileNotFound indicates an input audio file does not exist.
var ErrFileNotFound = errors.New("audio file not found")
