package scans

import "errors"

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)
