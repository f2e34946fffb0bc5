package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected no error for zero duration, got %v", err)
	}
}

func TestWaitForCompletes(t *testing.T) {
	called := false
	orig := sleep
	sleep = func(time.Duration) { called = true }
	defer func() { sleep = orig }()

	if err := WaitFor(context.Background(), time.Second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !called {
		t.Fatal("expected sleep to be called")
	}
}

func TestWaitForCanceledContext(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) { select {} }
	defer func() { sleep = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
