package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("emolens_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	id, err := s.StartSession(ctx, "video", "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	happy := types.Face{Box: types.Box{X: 1, Y: 2, W: 3, H: 4}, Emotions: map[string]float64{"happy": 0.9, "sad": 0.1}}
	sad := types.Face{Box: types.Box{X: 5, Y: 6, W: 7, H: 8}, Emotions: map[string]float64{"sad": 0.7}}
	rec := &SessionRecorder{Store: s, SessionID: id}

	if err := rec.Record(ctx, 0, []types.Face{happy, sad}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := rec.Record(ctx, 1, []types.Face{happy}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	// Frames without faces store nothing
	if err := rec.Record(ctx, 2, nil); err != nil {
		t.Fatalf("Record of empty frame failed: %v", err)
	}

	if err := s.EndSession(ctx, id, 3); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	tally, err := s.EmotionTally(ctx, id)
	if err != nil {
		t.Fatalf("EmotionTally failed: %v", err)
	}
	if tally["happy"] != 2 || tally["sad"] != 1 {
		t.Errorf("Unexpected tally %v", tally)
	}

	sessions, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.ID != id || got.FrameCount != 3 || got.Dominant != "happy" || got.EndedAt == nil {
		t.Errorf("Unexpected session %+v", got)
	}

	// Reset then re-migrate gives an empty history
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := initSchema(ctx, s.conn); err != nil {
		t.Fatalf("Re-init failed: %v", err)
	}
	sessions, err = s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions after reset failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Expected empty history after reset, got %d", len(sessions))
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
