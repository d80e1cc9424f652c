package store

import (
	"context"
	"fmt"
)

// Emission is one logged signal value.
type Emission struct {
	SessionID string
	Seq       int64
	Signal    string
	Value     string
}

// WriteEmission appends an emission. Uses ON CONFLICT DO NOTHING for
// idempotency: writing the same (session, seq) twice keeps the first row.
func (s *Store) WriteEmission(ctx context.Context, em Emission) error {
	if em.SessionID == "" {
		return fmt.Errorf("write emission: session id is required")
	}
	if em.Signal == "" {
		return fmt.Errorf("write emission: signal name is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emissions (session_id, seq, signal, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, em.SessionID, em.Seq, em.Signal, em.Value)
	if err != nil {
		return fmt.Errorf("write emission: %w", err)
	}
	return nil
}
