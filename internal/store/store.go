package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection holding session history.
type Store struct {
	conn *pgx.Conn
}

// Session is one recorded camera, video or image run.
type Session struct {
	ID         uuid.UUID
	SourceKind string
	SourcePath string
	StartedAt  time.Time
	EndedAt    *time.Time
	FrameCount int
	Dominant   string // most frequent top emotion, empty if no faces
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			source_kind TEXT NOT NULL,
			source_path TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ,
			frame_count INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS emotion_events (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			emotion TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			box INT[] NOT NULL
		);
		CREATE INDEX IF NOT EXISTS emotion_events_session_idx ON emotion_events (session_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// StartSession registers a new run and returns its ID.
func (s *Store) StartSession(ctx context.Context, kind, path string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO sessions (id, source_kind, source_path, started_at)
		VALUES ($1, $2, $3, NOW())
	`, id, kind, path)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// InsertEvents stores the top emotion of each face in one frame.
func (s *Store) InsertEvents(ctx context.Context, sessionID uuid.UUID, frameIdx int, faces []types.Face) error {
	if len(faces) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, f := range faces {
		label, score := emotion.Top(f.Emotions)
		if label == "" {
			continue
		}
		box := []int32{int32(f.Box.X), int32(f.Box.Y), int32(f.Box.W), int32(f.Box.H)}
		batch.Queue(`
			INSERT INTO emotion_events (session_id, frame_index, emotion, confidence, box)
			VALUES ($1, $2, $3, $4, $5)
		`, sessionID, frameIdx, label, score, box)
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.conn.SendBatch(ctx, batch).Close()
}

// EndSession stamps the end time and the number of frames processed.
func (s *Store) EndSession(ctx context.Context, sessionID uuid.UUID, frames int) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE sessions SET ended_at = NOW(), frame_count = $2 WHERE id = $1
	`, sessionID, frames)
	return err
}

// ListSessions returns sessions newest first, each with its dominant emotion.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT s.id, s.source_kind, s.source_path, s.started_at, s.ended_at, s.frame_count,
			COALESCE((
				SELECT e.emotion FROM emotion_events e
				WHERE e.session_id = s.id
				GROUP BY e.emotion
				ORDER BY COUNT(*) DESC, e.emotion ASC
				LIMIT 1
			), '')
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var ss Session
		if err := rows.Scan(&ss.ID, &ss.SourceKind, &ss.SourcePath, &ss.StartedAt, &ss.EndedAt, &ss.FrameCount, &ss.Dominant); err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

// EmotionTally counts top emotions recorded for a session.
func (s *Store) EmotionTally(ctx context.Context, sessionID uuid.UUID) (emotion.Tally, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT emotion, COUNT(*) FROM emotion_events WHERE session_id = $1 GROUP BY emotion
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tally := emotion.Tally{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		tally[label] = n
	}
	return tally, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS emotion_events CASCADE;
		DROP TABLE IF EXISTS sessions CASCADE;
	`)
	return err
}

// SessionRecorder feeds one session's detections into the store.
type SessionRecorder struct {
	Store     *Store
	SessionID uuid.UUID
}

// Record satisfies player.Recorder.
func (r *SessionRecorder) Record(ctx context.Context, frameIndex int, faces []types.Face) error {
	return r.Store.InsertEvents(ctx, r.SessionID, frameIndex, faces)
}
