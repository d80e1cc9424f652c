package store

import (
	"context"
	"fmt"
)

// ReadSession returns a session's emissions ordered by seq.
//
// Returns an empty slice (not nil) if the session has no emissions.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]Emission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, signal, value
		FROM emissions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	defer rows.Close()

	emissions := []Emission{}
	for rows.Next() {
		var em Emission
		if err := rows.Scan(&em.SessionID, &em.Seq, &em.Signal, &em.Value); err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		emissions = append(emissions, em)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}
	return emissions, nil
}

// SessionSummary describes one logged session.
type SessionSummary struct {
	ID        string `json:"id"`
	Emissions int    `json:"emissions"`
	FirstSeq  int64  `json:"first_seq"`
	LastSeq   int64  `json:"last_seq"`
}

// ListSessions summarizes every session, ordered by id. UUIDv7 session ids
// sort by creation time.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(seq), MAX(seq)
		FROM emissions
		GROUP BY session_id
		ORDER BY session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.ID, &ss.Emissions, &ss.FirstSeq, &ss.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
