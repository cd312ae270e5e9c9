package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"boardwatch/internal/services"
)

const stage = "store"

// beforeRename runs after the temp file is durable and before it replaces the
// destination. Tests use it to simulate a writer dying mid-write.
var beforeRename = func(string) error { return nil }

// Write marshals doc as indented JSON and atomically replaces path with it.
func Write(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, stage, "write", fmt.Sprintf("marshal %s", path), err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

// WriteBytes atomically replaces path with data.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, stage, "write", "create parent directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return services.Wrap(services.ErrIO, stage, "write", "create temp file", err)
	}
	tmpName := tmp.Name()
	fail := func(op string, cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrIO, stage, "write", op+" "+path, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write temp file for", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("chmod temp file for", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp file for", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrIO, stage, "write", "close temp file for "+path, err)
	}
	if err := beforeRename(tmpName); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrIO, stage, "write", "interrupted before rename of "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrIO, stage, "write", "rename temp file over "+path, err)
	}
	return nil
}

// Read decodes the JSON document at path into v.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stage, "read", path, nil)
		}
		return services.Wrap(services.ErrIO, stage, "read", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return services.Wrap(services.ErrCorruptData, stage, "read", path+" is empty", nil)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return services.Wrap(services.ErrCorruptData, stage, "read", path, err)
	}
	return nil
}

// Exists reports whether path is present. Errors other than absence are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, services.Wrap(services.ErrIO, stage, "stat", path, err)
	}
}

// EnsureSkeleton writes def to path only when path does not exist yet. It
// reports whether a document was written.
func EnsureSkeleton(path string, def any) (bool, error) {
	exists, err := Exists(path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := Write(path, def); err != nil {
		return false, err
	}
	return true, nil
}
