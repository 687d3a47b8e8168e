package service

import "errors"

var (
	ErrGenerationActive = errors.New("generation already in progress")
	ErrUnknownSurface   = errors.New("unknown topic surface")
	ErrMissingDatasetID = errors.New("dataset topic requires dataset id")
)
