package notify

import (
	"context"
	"errors"
	"testing"
)

type recordingChannel struct {
	sends int
	err   error
}

func (c *recordingChannel) Send(_ context.Context, _ string, _ Notification) error {
	c.sends++
	return c.err
}

func TestFanoutAttemptsAllChannels(t *testing.T) {
	first := &recordingChannel{err: errors.New("push down")}
	second := &recordingChannel{}

	f := NewFanout(first, second)
	err := f.Send(context.Background(), "u1", Notification{Message: "hi"})
	if err == nil {
		t.Fatal("expected error when one channel fails")
	}
	if first.sends != 1 || second.sends != 1 {
		t.Fatalf("expected both channels attempted, got %d and %d", first.sends, second.sends)
	}
}

func TestFanoutAllSucceed(t *testing.T) {
	first := &recordingChannel{}
	second := &recordingChannel{}

	f := NewFanout(first, second)
	if err := f.Send(context.Background(), "u1", Notification{Message: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
