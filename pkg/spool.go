// Package pkg is a package that provides utilities for pytestbridge.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Spool is a generic append-only on-disk sequence of items of type T.
// Payload accumulators use it to persist arrival-ordered sequences without
// holding a whole run in memory.
type Spool[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type spoolImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewSpool creates (or truncates) a spool file at path.
func NewSpool[T any](path string) (Spool[T], error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Error("failed to create spool", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create spool: %w", err)
	}

	return &spoolImpl[T]{
		path:    path,
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// OpenSpool opens an existing spool for reading via Range. Append is not
// supported on a reopened spool.
func OpenSpool[T any](path string) (Spool[T], error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open spool: %w", err)
	}

	return &spoolImpl[T]{path: path}, nil
}

// Append encodes one item at the end of the spool.
func (s *spoolImpl[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return fmt.Errorf("spool %s is not open for writing", s.path)
	}

	if err := s.encoder.Encode(item); err != nil {
		slog.Error("failed to encode spool item", "path", s.path, "index", s.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	s.length++

	return nil
}

// AppendBatch encodes items in order.
func (s *spoolImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := s.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of items appended through this handle.
func (s *spoolImpl[T]) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

// Path returns the backing file path.
func (s *spoolImpl[T]) Path() string {
	return s.path
}

// Range re-reads the spool from the start and calls f for every item in
// append order. Iteration stops at the first error returned by f.
func (s *spoolImpl[T]) Range(f func(index uint64, item T) error) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open spool for reading: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)

	for index := uint64(0); ; index++ {
		var item T

		err := decoder.Decode(&item)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			slog.Error("failed to decode spool item", "path", s.path, "index", index, "error", err)
			return fmt.Errorf("failed to decode item %d: %w", index, err)
		}

		if err := f(index, item); err != nil {
			return err
		}
	}
}

// Close flushes and closes the backing file.
func (s *spoolImpl[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if err := s.file.Close(); err != nil {
		slog.Error("failed to close spool", "path", s.path, "error", err)
		return err
	}

	s.file = nil

	return nil
}
