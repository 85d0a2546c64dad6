package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmUpReleasesStartedEngines(t *testing.T) {
	tasks := make(chan exportTask)
	ready := make(chan bool, 2)
	errs := make(chan error, 3)

	// Engine 0 starts and waits for work; engine 1 fails to start.
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ready <- true
		for range tasks {
		}
	}()
	errs <- errors.New("worker 1 failed to start")

	err := warmUp(context.Background(), ready, errs, 2, tasks)
	require.Error(t, err)

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("started engine is still waiting for tasks")
	}
}

func TestWarmUpCancelled(t *testing.T) {
	tasks := make(chan exportTask)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := warmUp(ctx, make(chan bool), make(chan error), 1, tasks)
	assert.ErrorIs(t, err, context.Canceled)

	_, open := <-tasks
	assert.False(t, open, "tasks should be closed")
}

func TestWarmUpAllReady(t *testing.T) {
	tasks := make(chan exportTask, 1)
	ready := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		ready <- true
	}

	require.NoError(t, warmUp(context.Background(), ready, make(chan error), 3, tasks))

	// Still open for the reader
	tasks <- exportTask{Index: 0}
	assert.Len(t, tasks, 1)
}

func TestResetFlags(t *testing.T) {
	assert.NotNil(t, resetCmd.Flags().Lookup("history"))
	assert.NotNil(t, resetCmd.Flags().Lookup("files"))
	// --db must stay the root connection string
	assert.Nil(t, resetCmd.LocalNonPersistentFlags().Lookup("db"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("db"))

	assert.Error(t, resetCmd.Args(resetCmd, []string{"postgres://x"}))
	assert.NoError(t, resetCmd.Args(resetCmd, nil))
}
