package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	insertErr error
	endErr    error
	inserted  int
	ended     []int // frame counts passed to EndSession
}

func (f *fakeSessions) InsertEvents(ctx context.Context, sessionID uuid.UUID, frameIdx int, faces []types.Face) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted += len(faces)
	return nil
}

func (f *fakeSessions) EndSession(ctx context.Context, sessionID uuid.UUID, frames int) error {
	f.ended = append(f.ended, frames)
	return f.endErr
}

func TestRecordStill(t *testing.T) {
	s := &fakeSessions{}
	faces := []types.Face{{Box: types.Box{W: 10, H: 10}, Emotions: map[string]float64{"happy": 1}}}

	require.NoError(t, recordStill(context.Background(), s, uuid.New(), faces))
	assert.Equal(t, 1, s.inserted)
	assert.Equal(t, []int{1}, s.ended)
}

func TestRecordStillEndsSessionOnInsertFailure(t *testing.T) {
	s := &fakeSessions{insertErr: errors.New("connection reset")}

	err := recordStill(context.Background(), s, uuid.New(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []int{0}, s.ended, "session must be closed with zero frames")
}

func TestRecordStillReportsEndFailure(t *testing.T) {
	s := &fakeSessions{endErr: errors.New("conn closed")}
	assert.Error(t, recordStill(context.Background(), s, uuid.New(), nil))
}

func TestEndSessionWithoutRecording(t *testing.T) {
	s := &fakeSessions{}
	assert.NoError(t, endSession(s, uuid.Nil, 12))
	assert.Empty(t, s.ended)

	assert.NoError(t, endSession(s, uuid.New(), 12))
	assert.Equal(t, []int{12}, s.ended)
}
