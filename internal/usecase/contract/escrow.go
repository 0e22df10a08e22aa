package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
)

type FundEscrowUseCase struct {
	contractRepo repository.ContractRepository
	notifier     repository.Notifier
}

func NewFundEscrowUseCase(contractRepo repository.ContractRepository, notifier repository.Notifier) *FundEscrowUseCase {
	return &FundEscrowUseCase{contractRepo: contractRepo, notifier: notifier}
}

// Execute пополняет эскроу. Повторные вызовы суммируются.
func (uc *FundEscrowUseCase) Execute(ctx context.Context, contractID, clientID uuid.UUID, amount decimal.Decimal) (*entity.Contract, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, contractID, clientID)
	if err != nil {
		return nil, err
	}

	from, err := c.Fund(amount)
	if err != nil {
		return nil, err
	}
	if err := uc.contractRepo.Fund(ctx, c.ID, amount, from, c.Status); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("fund").Inc()

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: c.FreelancerID,
		SenderID:    c.ClientID,
		Type:        valueobject.NotificationContractFunded,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Эскроу по контракту «" + c.Title + "» пополнено на " + amount.StringFixed(2),
	})
	return c, nil
}

type ActivateContractUseCase struct {
	contractRepo repository.ContractRepository
	notifier     repository.Notifier
	now          func() time.Time
}

func NewActivateContractUseCase(contractRepo repository.ContractRepository, notifier repository.Notifier) *ActivateContractUseCase {
	return &ActivateContractUseCase{contractRepo: contractRepo, notifier: notifier, now: time.Now}
}

func (uc *ActivateContractUseCase) Execute(ctx context.Context, contractID, clientID uuid.UUID) (*entity.Contract, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, contractID, clientID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if err := c.Activate(now); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.Activate(ctx, c.ID, now); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("activate").Inc()

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: c.FreelancerID,
		SenderID:    c.ClientID,
		Type:        valueobject.NotificationContractActivated,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Контракт «" + c.Title + "» запущен, можно приступать к работе",
	})
	return c, nil
}

type ReleasePaymentUseCase struct {
	contractRepo repository.ContractRepository
	notifier     repository.Notifier
}

func NewReleasePaymentUseCase(contractRepo repository.ContractRepository, notifier repository.Notifier) *ReleasePaymentUseCase {
	return &ReleasePaymentUseCase{contractRepo: contractRepo, notifier: notifier}
}

func (uc *ReleasePaymentUseCase) Execute(ctx context.Context, contractID, milestoneID, clientID uuid.UUID) (*entity.Contract, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, contractID, clientID)
	if err != nil {
		return nil, err
	}
	m, err := c.Milestone(milestoneID)
	if err != nil {
		return nil, err
	}

	if err := c.ReleasePayment(m); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.ReleasePayment(ctx, c.ID, m.ID, m.Amount); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("release").Inc()
	metrics.EscrowReleased.Add(m.Amount.InexactFloat64())

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: c.FreelancerID,
		SenderID:    c.ClientID,
		Type:        valueobject.NotificationPaymentReleased,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Выплачено " + m.Amount.StringFixed(2) + " за этап «" + m.Title + "»",
	})
	return c, nil
}

type CompleteContractUseCase struct {
	contractRepo repository.ContractRepository
	notifier     repository.Notifier
	now          func() time.Time
}

func NewCompleteContractUseCase(contractRepo repository.ContractRepository, notifier repository.Notifier) *CompleteContractUseCase {
	return &CompleteContractUseCase{contractRepo: contractRepo, notifier: notifier, now: time.Now}
}

// Execute завершает контракт и вакансию, когда все этапы оплачены.
func (uc *CompleteContractUseCase) Execute(ctx context.Context, contractID, clientID uuid.UUID) (*entity.Contract, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, contractID, clientID)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.Complete(uc.now()); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.Complete(ctx, c, from); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("complete").Inc()

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: c.FreelancerID,
		SenderID:    c.ClientID,
		Type:        valueobject.NotificationContractCompleted,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Контракт «" + c.Title + "» завершён",
	})
	return c, nil
}
