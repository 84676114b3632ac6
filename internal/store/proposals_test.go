package store

import (
	"errors"
	"testing"

	"github.com/grindlab/exicon/internal/domain"
)

func TestStore_PutGetProposal(t *testing.T) {
	s := openTestStore(t)

	p := &domain.Proposal{
		ID:            "p1",
		ExerciseID:    "ex1",
		Field:         domain.FieldDescription,
		CurrentValue:  "old",
		ProposedValue: "new",
		Confidence:    0.92,
		Status:        domain.ProposalPending,
		JobType:       "description-cleanup",
	}
	if err := s.PutProposal(p); err != nil {
		t.Fatalf("PutProposal failed: %v", err)
	}

	got, err := s.GetProposal("p1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.ProposedValue != "new" || got.Status != domain.ProposalPending {
		t.Errorf("unexpected proposal: %+v", got)
	}
}

func TestStore_SetProposalStatus(t *testing.T) {
	s := openTestStore(t)

	p := &domain.Proposal{ID: "p1", Status: domain.ProposalPending}
	if err := s.PutProposal(p); err != nil {
		t.Fatalf("PutProposal failed: %v", err)
	}

	if err := s.SetProposalStatus("p1", domain.ProposalApplied); err != nil {
		t.Fatalf("SetProposalStatus failed: %v", err)
	}

	got, err := s.GetProposal("p1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.Status != domain.ProposalApplied {
		t.Errorf("Status = %q, want applied", got.Status)
	}

	if err := s.SetProposalStatus("missing", domain.ProposalRejected); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ProposalsByStatus(t *testing.T) {
	s := openTestStore(t)

	for _, p := range []*domain.Proposal{
		{ID: "p1", Status: domain.ProposalPending},
		{ID: "p2", Status: domain.ProposalApplied},
		{ID: "p3", Status: domain.ProposalPending},
	} {
		if err := s.PutProposal(p); err != nil {
			t.Fatalf("PutProposal failed: %v", err)
		}
	}

	pending, err := s.ProposalsByStatus(domain.ProposalPending)
	if err != nil {
		t.Fatalf("ProposalsByStatus failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("len(pending) = %d, want 2", len(pending))
	}
}
