package hours

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestOutsideHours_Sunday(t *testing.T) {
	s := Default(time.UTC)
	// 2024-02-11 is a Sunday.
	day := at(t, "2024-02-11T00:00:00Z")
	for m := 0; m < 24*60; m += 15 {
		ts := day.Add(time.Duration(m) * time.Minute)
		if !s.OutsideHours(ts) {
			t.Fatalf("OutsideHours(%s) = false, want true", ts)
		}
	}
}

func TestOutsideHours_Saturday(t *testing.T) {
	s := Default(time.UTC)
	tests := []struct {
		ts   string
		want bool
	}{
		{"2024-02-10T07:59:59Z", true},
		{"2024-02-10T08:00:00Z", false},
		{"2024-02-10T11:59:59Z", false},
		{"2024-02-10T12:00:00Z", true},
		{"2024-02-10T15:00:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			if got := s.OutsideHours(at(t, tt.ts)); got != tt.want {
				t.Errorf("OutsideHours(%s) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestOutsideHours_Weekdays(t *testing.T) {
	s := Default(time.UTC)
	// 2024-02-05 (Mon) .. 2024-02-09 (Fri)
	for d := 5; d <= 9; d++ {
		day := time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)
		for m := 0; m < 24*60; m += 10 {
			ts := day.Add(time.Duration(m) * time.Minute)
			want := m < 8*60 || m >= 18*60
			if got := s.OutsideHours(ts); got != want {
				t.Fatalf("OutsideHours(%s) = %v, want %v", ts, got, want)
			}
		}
	}
}

func TestOutsideHours_UsesScheduleLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	s := Default(loc)
	// 10:00Z is 07:00 local on a Wednesday.
	if !s.OutsideHours(at(t, "2024-02-07T10:00:00Z")) {
		t.Fatalf("expected 07:00 local to be outside hours")
	}
	if s.OutsideHours(at(t, "2024-02-07T11:00:00Z")) {
		t.Fatalf("expected 08:00 local to be inside hours")
	}
}

func TestClassify(t *testing.T) {
	s := Default(time.UTC)
	inside := at(t, "2024-02-07T10:00:00Z")
	outside := at(t, "2024-02-07T20:00:00Z")

	tests := []struct {
		name            string
		customer, agent time.Time
		want            string
	}{
		{"both inside", inside, inside.Add(5 * time.Minute), StatusInside},
		{"customer outside", at(t, "2024-02-07T07:00:00Z"), inside, StatusCustomerOut},
		{"agent outside", inside, outside, StatusAgentOut},
		{"both outside", outside, outside.Add(time.Hour), StatusBothOutside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Classify(tt.customer, tt.agent)
			if got.Status != tt.want {
				t.Errorf("Classify() status = %q, want %q", got.Status, tt.want)
			}
			if again := s.Classify(tt.customer, tt.agent); again != got {
				t.Errorf("Classify() not deterministic: %+v vs %+v", got, again)
			}
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Location() != time.UTC {
		t.Fatalf("Location() = %v, want UTC", s.Location())
	}
	if w := s.Window(time.Sunday); w != nil {
		t.Fatalf("Window(Sunday) = %v, want closed", w)
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	if _, err := Load("Mars/Olympus", ""); err == nil {
		t.Fatalf("expected error for invalid timezone")
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hours.yaml")
	content := "days:\n  saturday: {open: \"09:00\", close: \"13:30\"}\n  monday: {closed: true}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s, err := Load("UTC", path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if w := s.Window(time.Saturday); w == nil || w.Open != 9*60 || w.Close != 13*60+30 {
		t.Fatalf("Window(Saturday) = %v, want 09:00-13:30", w)
	}
	if w := s.Window(time.Monday); w != nil {
		t.Fatalf("Window(Monday) = %v, want closed", w)
	}
	if w := s.Window(time.Tuesday); w == nil || w.Open != 8*60 || w.Close != 18*60 {
		t.Fatalf("Window(Tuesday) = %v, want default", w)
	}
}

func TestLoad_FileRejectsBadWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hours.yaml")
	content := "days:\n  friday: {open: \"18:00\", close: \"08:00\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Load("", path); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}
