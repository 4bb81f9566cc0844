package apk

import "errors"

var (
	ErrBadArchive  = errors.New("unreadable archive")
	ErrMismatch    = errors.New("artifact mismatch")
	ErrNoArtifacts = errors.New("no artifacts to compare")
)
