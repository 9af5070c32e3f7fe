package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
)

// readJSON decodes path into v. found is false when the file does not exist.
func readJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, appErrors.NewStoreError("read", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, appErrors.NewStoreError("parse", path, fmt.Errorf("corrupt store file: %w", err))
	}
	return true, nil
}

// writeJSON replaces path with the encoding of v through a temp file and rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return appErrors.NewStoreError("encode", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return appErrors.NewStoreError("write", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return appErrors.NewStoreError("write", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return appErrors.NewStoreError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return appErrors.NewStoreError("write", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return appErrors.NewStoreError("write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return appErrors.NewStoreError("write", path, err)
	}
	return nil
}
