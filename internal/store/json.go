package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// CorruptError reports a blob that exists but does not decode.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("store: decode %s: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// GetJSON decodes the blob under key into v. It reports false, with a nil
// error, when the key does not exist, and a *CorruptError when the blob
// cannot be decoded.
func GetJSON(ctx context.Context, s BlobStore, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &CorruptError{Key: key, Err: err}
	}
	return true, nil
}

// PutJSON encodes v as indented JSON, keeping non-ASCII text and HTML
// characters unescaped, and stores it under key.
func PutJSON(ctx context.Context, s BlobStore, key string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "store: encode %s", key)
	}
	return s.Put(ctx, key, buf.Bytes())
}
