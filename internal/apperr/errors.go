// Package apperr holds the sentinel errors shared across quikpix layers.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSourceUnavailable means the media index query failed or produced no cursor.
	ErrSourceUnavailable = errors.New("media source unavailable")
	// ErrEmptyResult means the scan succeeded but matched no images.
	ErrEmptyResult = errors.New("no matching images")
	// ErrMalformedRecord marks a single index row missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
)
