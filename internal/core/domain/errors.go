package domain

import "errors"

var (
	// ErrTooShort is returned when a buffer cannot hold the structure being decoded.
	ErrTooShort = errors.New("buffer too short")
	// ErrInvalidChannel is returned for channels outside 0..14 (or 1..14 where the aggregate is not allowed).
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrReportNotFound is returned by report archives for unknown IDs.
	ErrReportNotFound = errors.New("report not found")
)
