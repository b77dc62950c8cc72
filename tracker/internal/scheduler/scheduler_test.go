package scheduler

import (
	"context"
	"testing"
	"time"
)

// WHAT: trigger instant computation around the configured wall-clock time.
// WHY: a run must fire once per UTC day, rolling over at the boundary.
func TestNext(t *testing.T) {
	s := New(nil, Config{Hour: 23, Minute: 59}, nil)

	cases := []struct {
		at   string
		want string
	}{
		{"2026-08-29T10:00:00Z", "2026-08-29T23:59:00Z"},
		{"2026-08-29T23:58:59Z", "2026-08-29T23:59:00Z"},
		{"2026-08-29T23:59:00Z", "2026-08-30T23:59:00Z"}, // strictly after
		{"2026-08-29T23:59:30Z", "2026-08-30T23:59:00Z"},
		{"2026-12-31T23:59:30Z", "2027-01-01T23:59:00Z"},
	}
	for _, tc := range cases {
		at, _ := time.Parse(time.RFC3339, tc.at)
		want, _ := time.Parse(time.RFC3339, tc.want)
		if got := s.Next(at); !got.Equal(want) {
			t.Errorf("Next(%s) = %s, want %s", tc.at, got.Format(time.RFC3339), tc.want)
		}
	}
}

// WHAT: default trigger time when the config is zero.
func TestNext_Defaults(t *testing.T) {
	s := New(nil, Config{}, nil)
	at, _ := time.Parse(time.RFC3339, "2026-08-29T10:00:00Z")
	got := s.Next(at)
	if got.Hour() != 23 || got.Minute() != 59 {
		t.Errorf("default trigger = %02d:%02d, want 23:59", got.Hour(), got.Minute())
	}
}

// WHAT: Run fires the job with the trigger day and stops on cancel.
func TestRun_FiresWithDay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	s := New(func(_ context.Context, day string) error {
		got <- day
		cancel()
		return nil
	}, Config{Hour: 23, Minute: 59}, nil)

	frozen, _ := time.Parse(time.RFC3339, "2026-08-29T23:58:59.990Z")
	s.now = func() time.Time { return frozen }

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case day := <-got:
		if day != "2026-08-29" {
			t.Errorf("day = %q, want 2026-08-29", day)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run never fired")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
