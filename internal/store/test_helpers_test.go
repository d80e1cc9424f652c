package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustWrite writes emissions or fails the test.
func mustWrite(t *testing.T, s *Store, emissions ...Emission) {
	t.Helper()
	for _, em := range emissions {
		if err := s.WriteEmission(context.Background(), em); err != nil {
			t.Fatalf("WriteEmission(%+v) failed: %v", em, err)
		}
	}
}
