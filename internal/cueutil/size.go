// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"io"
	"os"
)

// DefaultMaxFileSize is the largest CUE file accepted (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// CheckFileSize returns an error when data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}

// ReadFileLimited reads path, refusing files larger than maxSize without
// reading them in full.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := CheckFileSize(data, maxSize, path); err != nil {
		return nil, err
	}
	return data, nil
}
