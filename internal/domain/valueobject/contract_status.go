package valueobject

import "github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"

type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusFunded    ContractStatus = "funded"
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusClosed    ContractStatus = "closed"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// Пополнение эскроу для funded и active оставляет статус прежним,
// поэтому переход в самого себя для них разрешён.
var contractTransitions = transitionTable[ContractStatus]{
	ContractStatusDraft:     {ContractStatusFunded, ContractStatusCancelled},
	ContractStatusFunded:    {ContractStatusFunded, ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled},
	ContractStatusActive:    {ContractStatusActive, ContractStatusCompleted, ContractStatusClosed, ContractStatusCancelled},
	ContractStatusCompleted: {},
	ContractStatusClosed:    {},
	ContractStatusCancelled: {},
}

func (s ContractStatus) IsValid() bool {
	_, ok := contractTransitions[s]
	return ok
}

func (s ContractStatus) CanTransitionTo(newStatus ContractStatus) bool {
	return contractTransitions.allows(s, newStatus)
}

func (s ContractStatus) IsTerminal() bool {
	return len(contractTransitions[s]) == 0
}

// FundTarget возвращает статус контракта после пополнения эскроу.
func (s ContractStatus) FundTarget() (ContractStatus, error) {
	switch s {
	case ContractStatusDraft:
		return ContractStatusFunded, nil
	case ContractStatusFunded, ContractStatusActive:
		return s, nil
	}
	return "", apperror.State("пополнить эскроу в статусе " + string(s) + " нельзя")
}

func NewContractStatus(status string) (ContractStatus, error) {
	s := ContractStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус контракта")
	}
	return s, nil
}

type MilestoneStatus string

const (
	MilestoneStatusPending          MilestoneStatus = "pending"
	MilestoneStatusFunded           MilestoneStatus = "funded"
	MilestoneStatusInProgress       MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted        MilestoneStatus = "submitted"
	MilestoneStatusChangesRequested MilestoneStatus = "changes_requested"
	MilestoneStatusCompleted        MilestoneStatus = "completed"
	MilestoneStatusPaid             MilestoneStatus = "paid"
)

var milestoneTransitions = transitionTable[MilestoneStatus]{
	MilestoneStatusPending:          {MilestoneStatusSubmitted, MilestoneStatusFunded, MilestoneStatusInProgress},
	MilestoneStatusFunded:           {MilestoneStatusInProgress, MilestoneStatusSubmitted},
	MilestoneStatusInProgress:       {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:        {MilestoneStatusSubmitted, MilestoneStatusCompleted, MilestoneStatusChangesRequested},
	MilestoneStatusChangesRequested: {MilestoneStatusSubmitted},
	MilestoneStatusCompleted:        {MilestoneStatusPaid},
	MilestoneStatusPaid:             {},
}

func (s MilestoneStatus) IsValid() bool {
	_, ok := milestoneTransitions[s]
	return ok
}

func (s MilestoneStatus) CanTransitionTo(newStatus MilestoneStatus) bool {
	return milestoneTransitions.allows(s, newStatus)
}

func NewMilestoneStatus(status string) (MilestoneStatus, error) {
	s := MilestoneStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус этапа")
	}
	return s, nil
}

type SubmissionStatus string

const (
	SubmissionStatusPending          SubmissionStatus = "pending"
	SubmissionStatusApproved         SubmissionStatus = "approved"
	SubmissionStatusChangesRequested SubmissionStatus = "changes_requested"
)

// ReviewDecision переводит решение клиента в целевой статус этапа.
func (s SubmissionStatus) ReviewDecision() (MilestoneStatus, error) {
	switch s {
	case SubmissionStatusApproved:
		return MilestoneStatusCompleted, nil
	case SubmissionStatusChangesRequested:
		return MilestoneStatusChangesRequested, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "статус проверки должен быть approved или changes_requested")
}
