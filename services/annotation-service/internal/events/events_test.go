package events

import (
	"context"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModePipeline, false},
		{"pipeline", ModePipeline, false},
		{"Pipeline", ModePipeline, false},
		{"cron", ModeCron, false},
		{" CRON ", ModeCron, false},
		{"push", ModePipeline, true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMode(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

type captureAppender struct {
	appended []Event
}

func (a *captureAppender) Append(_ context.Context, evt Event) error {
	a.appended = append(a.appended, evt)
	return nil
}

func TestRecorderOptions(t *testing.T) {
	store := &captureAppender{}
	rec := NewRecorder(store)

	err := rec.Record(context.Background(), "u1", "Label assigned",
		WithType("assignment.created"),
		WithData(map[string]string{"subject_id": "s1"}),
	)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended event, got %d", len(store.appended))
	}
	evt := store.appended[0]
	if evt.UserID != "u1" || evt.Message != "Label assigned" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.EventType != "assignment.created" {
		t.Fatalf("unexpected event type: %q", evt.EventType)
	}
	if string(evt.EventData) != `{"subject_id":"s1"}` {
		t.Fatalf("unexpected event data: %s", evt.EventData)
	}
}

func TestRecorderRequiresUser(t *testing.T) {
	rec := NewRecorder(&captureAppender{})
	if err := rec.Record(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestRecorderMultiplePerOperation(t *testing.T) {
	store := &captureAppender{}
	rec := NewRecorder(store)

	if err := rec.Record(context.Background(), "labeler-1", "You have been assigned to subject X"); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := rec.Record(context.Background(), "owner-1", "Assignment count changed"); err != nil {
		t.Fatalf("second record: %v", err)
	}
	if len(store.appended) != 2 {
		t.Fatalf("expected 2 events, got %d", len(store.appended))
	}
}
