package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedula/schedula/internal/domain/identity"
)

func seedSlot(t *testing.T, repo *mockRepo, providerID, date, timeOfDay, status string) *Appointment {
	t.Helper()
	a := &Appointment{ProviderID: providerID, Date: date, TimeOfDay: timeOfDay, Status: status}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func TestSweeper_CompletesPastAppointments(t *testing.T) {
	repo := newMockRepo()

	now := time.Now()
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	done := seedSlot(t, repo, "doc1", past.Format(identity.DateLayout), "09:00", StatusScheduled)
	upcoming := seedSlot(t, repo, "doc1", future.Format(identity.DateLayout), "09:00", StatusScheduled)
	cancelled := seedSlot(t, repo, "doc2", past.Format(identity.DateLayout), "09:00", StatusCancelled)

	s := NewSweeper(repo, "@hourly", zerolog.Nop())
	s.sweep()

	if repo.appts[done.ID].Status != StatusCompleted {
		t.Error("past scheduled appointment should be completed")
	}
	if repo.appts[upcoming.ID].Status != StatusScheduled {
		t.Error("future appointment should stay scheduled")
	}
	if repo.appts[cancelled.ID].Status != StatusCancelled {
		t.Error("cancelled appointment should stay cancelled")
	}
}

func TestSweeper_StartRunsCatchUpSweep(t *testing.T) {
	repo := newMockRepo()
	past := time.Now().Add(-48 * time.Hour)
	done := seedSlot(t, repo, "doc1", past.Format(identity.DateLayout), "09:00", StatusScheduled)

	s := NewSweeper(repo, "@every 1h", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if repo.appts[done.ID].Status != StatusCompleted {
		t.Error("Start should sweep immediately")
	}
}

func TestSweeper_StartBadSchedule(t *testing.T) {
	s := NewSweeper(newMockRepo(), "not a schedule", zerolog.Nop())
	if err := s.Start(); err == nil {
		t.Error("expected error for malformed schedule")
	}
}
