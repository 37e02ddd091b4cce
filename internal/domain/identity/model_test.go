package identity

import "testing"

func TestProvider_CoversSlot(t *testing.T) {
	p := &Provider{
		ID:   "doc1",
		Name: "Dr. Sarah Mitchell",
		Availability: []AvailabilityWindow{
			{Day: "monday", Start: "09:00", End: "12:00"},
			{Day: "monday", Start: "14:00", End: "17:00"},
			{Day: "wednesday", Start: "09:00", End: "17:00"},
		},
	}

	tests := []struct {
		name string
		date string
		time string
		want bool
	}{
		// 2026-08-24 is a Monday, 2026-08-26 a Wednesday.
		{"inside morning window", "2026-08-24", "10:00", true},
		{"inside afternoon window", "2026-08-24", "15:30", true},
		{"window start is inclusive", "2026-08-24", "09:00", true},
		{"window end is exclusive", "2026-08-24", "12:00", false},
		{"between windows", "2026-08-24", "13:00", false},
		{"other listed day", "2026-08-26", "11:00", true},
		{"day not listed", "2026-08-25", "10:00", false},
		{"malformed date", "not-a-date", "10:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CoversSlot(tt.date, tt.time); got != tt.want {
				t.Errorf("CoversSlot(%s, %s) = %v, want %v", tt.date, tt.time, got, tt.want)
			}
		})
	}
}

func TestProvider_CoversSlot_NoAvailability(t *testing.T) {
	p := &Provider{ID: "doc2", Name: "Dr. James Chen"}

	if !p.CoversSlot("2026-08-24", "03:00") {
		t.Error("provider with no declared availability should cover any slot")
	}
}
