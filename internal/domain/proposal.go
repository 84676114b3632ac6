package domain

import "time"

// ProposalStatus is the review state of a cleanup proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalApplied  ProposalStatus = "applied"
)

// Proposal is a staged, reviewable mutation to a single exercise field,
// produced by the batch pipelines. In auto-apply mode a proposal whose
// confidence clears the configured threshold is written through directly
// and recorded as applied.
type Proposal struct {
	ID            string         `json:"id"`
	ExerciseID    string         `json:"exercise_id"`
	Field         string         `json:"field"`
	CurrentValue  string         `json:"current_value"`
	ProposedValue string         `json:"proposed_value"`
	Confidence    float64        `json:"confidence"`
	Status        ProposalStatus `json:"status"`
	JobType       string         `json:"job_type"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
