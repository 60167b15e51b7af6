package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bikinibottom/spongeplay/internal/storage"
)

const defaultMaxAttempts = 5

var (
	// ErrCorrupt wraps a stored document that is not a JSON array of records.
	ErrCorrupt = errors.New("stored collection is not valid JSON")
	// ErrContention is returned when every Update attempt lost a write race.
	ErrContention = errors.New("collection kept changing during update")
)

// Collection is one named JSON array stored as a whole document.
type Collection[T any] struct {
	Name        string
	Default     func() []T
	Backend     storage.Backend
	MaxAttempts int
}

// Load reads the whole collection. A missing document yields the default and
// no error. A read or parse failure yields the default together with the
// error, so callers can show a warning and carry on.
func (c *Collection[T]) Load(ctx context.Context) ([]T, storage.Version, error) {
	doc, err := c.Backend.Read(ctx, c.Name)
	if errors.Is(err, storage.ErrNotFound) {
		return c.defaults(), storage.Absent, nil
	}
	if err != nil {
		return c.defaults(), storage.Any, fmt.Errorf("load %s: %w", c.Name, err)
	}

	var list []T
	if err := json.Unmarshal(doc.Data, &list); err != nil {
		return c.defaults(), doc.Version, fmt.Errorf("load %s: %w: %v", c.Name, ErrCorrupt, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, doc.Version, nil
}

// Save overwrites the collection with list.
func (c *Collection[T]) Save(ctx context.Context, list []T) error {
	_, err := c.write(ctx, list, storage.Any)
	return err
}

// Update applies fn to the current contents and writes the result only if
// nobody else wrote in between, reloading and retrying otherwise. A corrupt
// document is never overwritten by Update.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		list, version, err := c.Load(ctx)
		if err != nil {
			return nil, err
		}

		next, err := fn(list)
		if err != nil {
			return nil, err
		}

		_, err = c.write(ctx, next, version)
		if errors.Is(err, storage.ErrConflict) {
			slog.Debug("board: write conflict, retrying", "collection", c.Name, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, fmt.Errorf("update %s: %w", c.Name, ErrContention)
}

func (c *Collection[T]) write(ctx context.Context, list []T, match storage.Version) (storage.Version, error) {
	data, err := encodeList(list)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.Name, err)
	}
	v, err := c.Backend.Write(ctx, c.Name, data, match)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("save %s: %w", c.Name, err)
	}
	return v, nil
}

func (c *Collection[T]) defaults() []T {
	if c.Default == nil {
		return []T{}
	}
	return c.Default()
}

// encodeList writes an indented UTF-8 array with a trailing newline.
func encodeList[T any](list []T) ([]byte, error) {
	if list == nil {
		list = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
