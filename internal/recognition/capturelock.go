package recognition

import (
	"context"
	"sync"

	"github.com/gofrs/flock"

	"escucha/internal/services"
)

// WithCaptureLock wraps an engine so each stream holds an exclusive host-level
// lock for the duration of listening. A second start while the lock is held
// fails instead of queueing, and the lock is released when the stream ends,
// errors, or is closed.
func WithCaptureLock(inner Engine, lockPath string) Engine {
	return &lockedEngine{inner: inner, lockPath: lockPath}
}

type lockedEngine struct {
	inner    Engine
	lockPath string
}

func (e *lockedEngine) Start(ctx context.Context, cfg StreamConfig) (Stream, error) {
	lock := flock.New(e.lockPath)
	held, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognition", "capture lock", e.lockPath, err)
	}
	if !held {
		return nil, services.Wrap(services.ErrConflict, "recognition", "capture lock", "audio input already in use", nil)
	}

	stream, err := e.inner.Start(ctx, cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return newLockedStream(stream, lock), nil
}

// lockedStream forwards events untouched and releases the capture lock once
// the underlying stream terminates.
type lockedStream struct {
	inner  Stream
	lock   *flock.Flock
	events chan Event
	once   sync.Once
}

func newLockedStream(inner Stream, lock *flock.Flock) *lockedStream {
	s := &lockedStream{
		inner:  inner,
		lock:   lock,
		events: make(chan Event, 16),
	}
	go s.forward()
	return s
}

func (s *lockedStream) forward() {
	for ev := range s.inner.Events() {
		s.events <- ev
	}
	close(s.events)
	s.release()
}

func (s *lockedStream) release() {
	s.once.Do(func() {
		_ = s.lock.Unlock()
	})
}

func (s *lockedStream) Events() <-chan Event { return s.events }

func (s *lockedStream) Stop() error { return s.inner.Stop() }

func (s *lockedStream) Close() error {
	err := s.inner.Close()
	s.release()
	return err
}
