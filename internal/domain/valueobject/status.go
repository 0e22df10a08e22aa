package valueobject

import "github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"

// transitionTable хранит допустимые переходы для одной сущности.
type transitionTable[S comparable] map[S][]S

func (t transitionTable[S]) allows(from, to S) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusClosed     JobStatus = "closed"
)

var jobTransitions = transitionTable[JobStatus]{
	JobStatusOpen:       {JobStatusInProgress, JobStatusCancelled, JobStatusClosed},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled, JobStatusOpen},
	JobStatusClosed:     {JobStatusOpen},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	return jobTransitions.allows(s, newStatus)
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус вакансии")
	}
	return s, nil
}

type ProposalStatus string

const (
	ProposalStatusPending      ProposalStatus = "pending"
	ProposalStatusInterviewing ProposalStatus = "interviewing"
	ProposalStatusAccepted     ProposalStatus = "accepted"
	ProposalStatusDeclined     ProposalStatus = "declined"
)

var proposalTransitions = transitionTable[ProposalStatus]{
	ProposalStatusPending:      {ProposalStatusInterviewing, ProposalStatusAccepted, ProposalStatusDeclined},
	ProposalStatusInterviewing: {ProposalStatusAccepted, ProposalStatusDeclined, ProposalStatusPending},
	ProposalStatusAccepted:     {},
	ProposalStatusDeclined:     {},
}

func (s ProposalStatus) IsValid() bool {
	_, ok := proposalTransitions[s]
	return ok
}

func (s ProposalStatus) CanTransitionTo(newStatus ProposalStatus) bool {
	return proposalTransitions.allows(s, newStatus)
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}
