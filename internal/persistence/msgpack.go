package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// SaveMsgpack encodes the given object using msgpack and saves it to the specified filePath.
// It creates necessary directories if they don't exist.
func SaveMsgpack(filePath string, object interface{}) (err error) {
	// Ensure the directory exists
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(filePath) // #nosec G304 -- filePath is controlled by application, not user input
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer closeFile(file, filePath, &err)

	w := bufio.NewWriter(file)
	if err := msgpack.NewEncoder(w).Encode(object); err != nil {
		return fmt.Errorf("failed to msgpack encode to file %s: %w", filePath, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush file %s: %w", filePath, err)
	}
	return nil
}

// LoadMsgpack decodes a msgpack-encoded file from filePath into the provided object pointer.
// If the file does not exist, it returns os.ErrNotExist, allowing callers to handle
// fresh starts gracefully.
func LoadMsgpack(filePath string, objectPointer interface{}) (err error) {
	file, err := os.Open(filePath) // #nosec G304 -- filePath is controlled by application, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist // Return specific error for non-existent file
		}
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer closeFile(file, filePath, &err)

	if err := msgpack.NewDecoder(bufio.NewReader(file)).Decode(objectPointer); err != nil {
		return fmt.Errorf("failed to msgpack decode from file %s: %w", filePath, err)
	}
	return nil
}

// closeFile closes f and reports a close failure through err unless err
// already holds an earlier failure.
func closeFile(f io.Closer, filePath string, err *error) {
	if closeErr := f.Close(); closeErr != nil && *err == nil {
		*err = fmt.Errorf("failed to close file %s: %w", filePath, closeErr)
	}
}
