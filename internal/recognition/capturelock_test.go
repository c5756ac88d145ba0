package recognition_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"escucha/internal/recognition"
	"escucha/internal/services"
	"escucha/internal/testsupport"
)

func TestCaptureLockIsExclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "capture.lock")
	scripted := testsupport.NewScriptedEngine()
	engine := recognition.WithCaptureLock(scripted, lockPath)

	stream, err := engine.Start(context.Background(), recognition.StreamConfig{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A second capture is rejected while the lock is held, not queued.
	if _, err := engine.Start(context.Background(), recognition.StreamConfig{}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict while lock held, got %v", err)
	}

	scripted.LastStream().EmitSegment("seg-1", "hola", 0, 1)
	scripted.LastStream().End("")
	for range stream.Events() {
	}

	// The lock is released once the stream terminates; a fresh capture can
	// start. Release happens asynchronously with stream shutdown, so poll.
	deadline := time.Now().Add(2 * time.Second)
	for {
		next, err := engine.Start(context.Background(), recognition.StreamConfig{})
		if err == nil {
			scripted.LastStream().End("")
			for range next.Events() {
			}
			return
		}
		if !errors.Is(err, services.ErrConflict) {
			t.Fatalf("unexpected start error: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("lock never released after stream end")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCaptureLockReleasedOnStartFailure(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "capture.lock")
	scripted := testsupport.NewScriptedEngine()
	scripted.StartErr = errors.New("dial failed")
	engine := recognition.WithCaptureLock(scripted, lockPath)

	if _, err := engine.Start(context.Background(), recognition.StreamConfig{}); err == nil {
		t.Fatal("expected start failure")
	}

	// The failed start must not leave the lock held.
	scripted.StartErr = nil
	stream, err := engine.Start(context.Background(), recognition.StreamConfig{})
	if err != nil {
		t.Fatalf("Start after failure: %v", err)
	}
	scripted.LastStream().End("")
	for range stream.Events() {
	}
}

func TestCaptureLockReleasedOnClose(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "capture.lock")
	scripted := testsupport.NewScriptedEngine()
	engine := recognition.WithCaptureLock(scripted, lockPath)

	stream, err := engine.Start(context.Background(), recognition.StreamConfig{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	next, err := engine.Start(context.Background(), recognition.StreamConfig{})
	if err != nil {
		t.Fatalf("Start after close: %v", err)
	}
	scripted.LastStream().End("")
	for range next.Events() {
	}
}
