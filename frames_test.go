package main

import (
	"context"
	"testing"
	"time"

	"github.com/bodul/dailyword/internal/game"
)

func TestTickFrames(t *testing.T) {
	srv := newTestServer(t, nil)
	idle := createSession(t, srv, "")
	v := createSession(t, srv, "")
	sendKeys(t, srv, v.ID, "CRANE")

	c := srv.sse.Register(v.ID)
	defer srv.sse.Unregister(c)
	other := srv.sse.Register(idle.ID)
	defer srv.sse.Unregister(other)

	if n := srv.tickFrames(); n != 1 {
		t.Fatalf("frame 1: expected 1 snapshot, got %d", n)
	}
	evt := readEvent(t, c)
	if phase := evt.Data.(map[string]any)["phase"]; phase != string(game.PhaseCommitted) {
		t.Fatalf("frame 1: expected committed, got %v", phase)
	}

	if n := srv.tickFrames(); n != 1 {
		t.Fatalf("frame 2: expected 1 snapshot, got %d", n)
	}
	evt = readEvent(t, c)
	if phase := evt.Data.(map[string]any)["phase"]; phase != string(game.PhaseIdle) {
		t.Fatalf("frame 2: expected idle, got %v", phase)
	}

	// The recent highlight holds for 1.5s, nothing to publish meanwhile.
	if n := srv.tickFrames(); n != 0 {
		t.Fatalf("frame 3: expected no snapshot, got %d", n)
	}
	if !srv.store.GetGame(v.ID).Busy() {
		t.Fatal("session should stay busy while the highlight holds")
	}

	select {
	case msg := <-other.ch:
		t.Fatalf("idle session should not receive frames, got %s", msg)
	default:
	}
}

func TestRunFramesStops(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		srv.RunFrames(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunFrames did not return after cancel")
	}
}
