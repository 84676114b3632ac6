package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/grindlab/exicon/internal/domain"
)

// PutProposal inserts or replaces a cleanup proposal.
func (s *Store) PutProposal(p *domain.Proposal) error {
	if p.ID == "" {
		return errors.New("proposal id cannot be empty")
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal proposal: %w", err)
		}
		return tx.Bucket(bucketProposals).Put([]byte(p.ID), data)
	})
}

// GetProposal returns the proposal with the given id, or ErrNotFound.
func (s *Store) GetProposal(id string) (*domain.Proposal, error) {
	var p *domain.Proposal
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketProposals).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: proposal %s", ErrNotFound, id)
		}
		p = &domain.Proposal{}
		return json.Unmarshal(data, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetProposalStatus moves a proposal through its review lifecycle.
func (s *Store) SetProposalStatus(id string, status domain.ProposalStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		proposals := tx.Bucket(bucketProposals)
		data := proposals.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: proposal %s", ErrNotFound, id)
		}

		var p domain.Proposal
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to unmarshal proposal: %w", err)
		}
		p.Status = status
		p.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&p)
		if err != nil {
			return fmt.Errorf("failed to marshal proposal: %w", err)
		}
		return proposals.Put([]byte(id), updated)
	})
}

// ProposalsByStatus returns all proposals in the given review state.
func (s *Store) ProposalsByStatus(status domain.ProposalStatus) ([]domain.Proposal, error) {
	var result []domain.Proposal
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProposals).ForEach(func(_, data []byte) error {
			var p domain.Proposal
			if err := json.Unmarshal(data, &p); err != nil {
				return nil
			}
			if p.Status == status {
				result = append(result, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
