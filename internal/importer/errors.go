package importer

import "errors"

// Sentinel errors for bulk imports.
var (
	ErrEmptyBatch        = errors.New("batch has no events or users")
	ErrUnsupportedFormat = errors.New("unsupported batch file format")
	ErrReadBatch         = errors.New("read batch file")
)
