package imageprocessor

import (
	"errors"
	"fmt"
)

// ErrDecode is returned when the input bytes are not a supported raster image
var ErrDecode = errors.New("unsupported or corrupt image")

// StorageError is returned when the storage backend rejects a read, write or delete
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
