package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/schedula/schedula/internal/domain/identity"
)

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	data := `[
		{"id": "doc1", "name": "Dr. Test One", "department": "Cardiology", "experience": 10, "success_rate": 95, "qualification": "MD", "room": "Ward 1",
		 "availability": [{"day": "monday", "start": "09:00", "end": "12:00"}]},
		{"id": "doc2", "name": "Dr. Test Two", "department": "Neurology", "experience": 5, "success_rate": 88}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	roster, err := loadRoster(path)
	if err != nil {
		t.Fatalf("loadRoster failed: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(roster))
	}
	if roster[0].ID != "doc1" || roster[0].Name != "Dr. Test One" {
		t.Errorf("unexpected first provider: %+v", roster[0])
	}
	if len(roster[0].Availability) != 1 || roster[0].Availability[0].Day != "monday" {
		t.Errorf("availability not parsed: %+v", roster[0].Availability)
	}
	if roster[1].SuccessRate != 88 {
		t.Errorf("expected success_rate 88, got %v", roster[1].SuccessRate)
	}
}

func TestLoadRoster_MissingFile(t *testing.T) {
	_, err := loadRoster(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRoster_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRoster(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadRoster_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRoster(path); err == nil {
		t.Error("expected error for empty roster")
	}
}

// TestLoadRoster_CheckedInRoster validates the roster file shipped with the
// repository: unique IDs and names, rates in range, canonical window times.
func TestLoadRoster_CheckedInRoster(t *testing.T) {
	roster, err := loadRoster("../../providers.json")
	if err != nil {
		t.Fatalf("loadRoster failed: %v", err)
	}
	if len(roster) != 20 {
		t.Fatalf("expected 20 providers, got %d", len(roster))
	}

	ids := make(map[string]bool)
	names := make(map[string]bool)
	for _, p := range roster {
		if p.ID == "" || p.Name == "" {
			t.Errorf("provider with blank id or name: %+v", p)
		}
		if ids[p.ID] {
			t.Errorf("duplicate provider id %q", p.ID)
		}
		if names[p.Name] {
			t.Errorf("duplicate provider name %q", p.Name)
		}
		ids[p.ID] = true
		names[p.Name] = true

		if p.SuccessRate < 0 || p.SuccessRate > 100 {
			t.Errorf("provider %s success_rate out of range: %v", p.ID, p.SuccessRate)
		}

		for _, w := range p.Availability {
			for _, clock := range []string{w.Start, w.End} {
				parsed, err := time.Parse(identity.TimeLayout, clock)
				if err != nil {
					t.Errorf("provider %s window time %q does not parse: %v", p.ID, clock, err)
					continue
				}
				if parsed.Format(identity.TimeLayout) != clock {
					t.Errorf("provider %s window time %q is not zero-padded", p.ID, clock)
				}
			}
			if w.Start >= w.End {
				t.Errorf("provider %s window %s starts at or after its end (%s-%s)", p.ID, w.Day, w.Start, w.End)
			}
		}
	}
}

func TestDemoPatients(t *testing.T) {
	patients := demoPatients(10)
	if len(patients) != 10 {
		t.Fatalf("expected 10 patients, got %d", len(patients))
	}
	for _, p := range patients {
		if p.Name == "" {
			t.Error("generated patient with empty name")
		}
		if p.Contact == "" {
			t.Error("generated patient with empty contact")
		}
		if _, err := time.Parse(identity.DateLayout, p.DOB); err != nil {
			t.Errorf("generated DOB %q does not parse: %v", p.DOB, err)
		}
	}
}

func TestDemoPatients_Zero(t *testing.T) {
	if got := demoPatients(0); len(got) != 0 {
		t.Errorf("expected empty slice, got %d patients", len(got))
	}
}
