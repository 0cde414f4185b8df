package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
	stopWait time.Duration
}

func (f *fakeComponent) Start(ctx context.Context) error {
	f.rec.calls = append(f.rec.calls, "start "+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.rec.calls = append(f.rec.calls, "stop "+f.name)
	if f.stopWait > 0 {
		select {
		case <-time.After(f.stopWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.stopErr
}

func (f *fakeComponent) Name() string { return f.name }

func TestManager_StartStopOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.Register(&fakeComponent{name: "tracing", rec: rec}))
	require.NoError(t, m.Register(&fakeComponent{name: "metrics", rec: rec, stopErr: errors.New("push failed")}))

	require.NoError(t, m.Start(context.Background()))
	m.Stop(context.Background())
	m.Stop(context.Background())

	assert.Equal(t, []string{"start tracing", "start metrics", "stop metrics", "stop tracing"}, rec.calls)
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.Register(&fakeComponent{name: "a", rec: rec}))
	require.NoError(t, m.Register(&fakeComponent{name: "b", rec: rec, startErr: errors.New("boom")}))
	require.NoError(t, m.Register(&fakeComponent{name: "c", rec: rec}))

	err := m.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialization failed for b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, rec.calls)
}

func TestManager_Register(t *testing.T) {
	m := NewManager()
	c := &fakeComponent{name: "a", rec: &recorder{}}

	require.NoError(t, m.Register(c))
	assert.Error(t, m.Register(c))
	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{rec: &recorder{}}))
}

func TestManager_StopTimeout(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	m.SetShutdownTimeout(20 * time.Millisecond)
	require.NoError(t, m.Register(&fakeComponent{name: "slow", rec: rec, stopWait: time.Minute}))
	require.NoError(t, m.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		m.Stop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not honour the shutdown timeout")
	}
}
