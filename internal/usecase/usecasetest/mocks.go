// Package usecasetest содержит in-memory реализации портов для тестов сценариев.
//
// Репозитории хранят копии сущностей, поэтому изменения, сделанные сценарием
// в памяти, не видны хранилищу до вызова соответствующего метода. Условные
// обновления проверяют ожидаемый статус так же, как SQL-адаптеры.
package usecasetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/storage"
)

type JobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*entity.Job)}
}

func cloneJob(j *entity.Job) *entity.Job {
	c := *j
	c.Skills = append([]string(nil), j.Skills...)
	return &c
}

func (m *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return apperror.ErrJobNotFound
	}
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return cloneJob(j), nil
	}
	return nil, apperror.ErrJobNotFound
}

func (m *JobRepository) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Job
	for _, j := range m.jobs {
		if j.ClientID == clientID {
			result = append(result, cloneJob(j))
		}
	}
	return result, nil
}

// List поддерживает только фильтр по статусу open и пагинацию, для тестов этого достаточно.
func (m *JobRepository) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Job
	for _, j := range m.jobs {
		if j.IsOpen() {
			result = append(result, cloneJob(j))
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt.After(result[b].CreatedAt) })
	total := len(result)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return result[filter.Offset:end], total, nil
}

func (m *JobRepository) ListHot(ctx context.Context, since time.Time, limit int) ([]*entity.Job, error) {
	jobs, _, err := m.List(ctx, repository.JobFilter{Limit: limit})
	return jobs, err
}

func (m *JobRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Views++
	}
	return nil
}

func (m *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casStatus(id, from, to)
}

func (m *JobRepository) casStatus(id uuid.UUID, from, to valueobject.JobStatus) error {
	j, ok := m.jobs[id]
	if !ok {
		return apperror.ErrJobNotFound
	}
	if j.Status != from {
		return apperror.ErrConcurrentUpdate
	}
	j.Status = to
	return nil
}

// Get возвращает сохранённое состояние для проверок в тестах.
func (m *JobRepository) Get(id uuid.UUID) *entity.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return cloneJob(j)
	}
	return nil
}

type ProposalRepository struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*entity.Proposal
}

func NewProposalRepository() *ProposalRepository {
	return &ProposalRepository{proposals: make(map[uuid.UUID]*entity.Proposal)}
}

func cloneProposal(p *entity.Proposal) *entity.Proposal {
	c := *p
	return &c
}

func (m *ProposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.proposals {
		if existing.JobID == p.JobID && existing.FreelancerID == p.FreelancerID {
			return apperror.ErrAlreadyApplied
		}
	}
	m.proposals[p.ID] = cloneProposal(p)
	return nil
}

func (m *ProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proposals, id)
	return nil
}

func (m *ProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.proposals[id]; ok {
		return cloneProposal(p), nil
	}
	return nil, apperror.ErrProposalNotFound
}

func (m *ProposalRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Proposal
	for _, p := range m.proposals {
		if p.JobID == jobID {
			result = append(result, cloneProposal(p))
		}
	}
	return result, nil
}

func (m *ProposalRepository) FindByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Proposal
	for _, p := range m.proposals {
		if p.FreelancerID == freelancerID {
			result = append(result, cloneProposal(p))
		}
	}
	return result, nil
}

func (m *ProposalRepository) FindByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proposals {
		if p.JobID == jobID && p.FreelancerID == freelancerID {
			return cloneProposal(p), nil
		}
	}
	return nil, nil
}

func (m *ProposalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProposalStatus, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.casStatus(id, from, to); err != nil {
		return err
	}
	if notes != nil {
		m.proposals[id].ClientNotes = notes
	}
	return nil
}

func (m *ProposalRepository) casStatus(id uuid.UUID, from, to valueobject.ProposalStatus) error {
	p, ok := m.proposals[id]
	if !ok {
		return apperror.ErrProposalNotFound
	}
	if p.Status != from {
		return apperror.ErrConcurrentUpdate
	}
	p.Status = to
	return nil
}

func (m *ProposalRepository) Get(id uuid.UUID) *entity.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.proposals[id]; ok {
		return cloneProposal(p)
	}
	return nil
}

type ContractRepository struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*entity.Contract
	jobs      *JobRepository
	proposals *ProposalRepository
	// CompletedOrders считает завершённые контракты по исполнителю.
	CompletedOrders map[uuid.UUID]int
}

func NewContractRepository(jobs *JobRepository, proposals *ProposalRepository) *ContractRepository {
	return &ContractRepository{
		contracts:       make(map[uuid.UUID]*entity.Contract),
		jobs:            jobs,
		proposals:       proposals,
		CompletedOrders: make(map[uuid.UUID]int),
	}
}

func cloneSubmission(s entity.Submission) entity.Submission {
	s.Files = append([]entity.SubmittedFile(nil), s.Files...)
	return s
}

func cloneMilestone(m *entity.Milestone) *entity.Milestone {
	c := *m
	if m.CurrentSubmission != nil {
		cur := cloneSubmission(*m.CurrentSubmission)
		c.CurrentSubmission = &cur
	}
	c.SubmissionHistory = nil
	for _, s := range m.SubmissionHistory {
		c.SubmissionHistory = append(c.SubmissionHistory, cloneSubmission(s))
	}
	return &c
}

func cloneContract(src *entity.Contract) *entity.Contract {
	c := *src
	c.Milestones = nil
	for _, m := range src.Milestones {
		c.Milestones = append(c.Milestones, cloneMilestone(m))
	}
	return &c
}

func (m *ContractRepository) CreateFromProposal(ctx context.Context, c *entity.Contract, proposalFrom valueobject.ProposalStatus, jobFrom valueobject.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contracts {
		if existing.ProposalID == c.ProposalID {
			return apperror.ErrContractExists
		}
	}

	m.proposals.mu.Lock()
	p, ok := m.proposals.proposals[c.ProposalID]
	if !ok || p.Status != proposalFrom {
		m.proposals.mu.Unlock()
		return apperror.ErrConcurrentUpdate
	}
	m.jobs.mu.Lock()
	j, ok := m.jobs.jobs[c.JobID]
	if !ok || j.Status != jobFrom {
		m.jobs.mu.Unlock()
		m.proposals.mu.Unlock()
		return apperror.ErrConcurrentUpdate
	}
	p.Status = valueobject.ProposalStatusAccepted
	j.Status = valueobject.JobStatusInProgress
	m.jobs.mu.Unlock()
	m.proposals.mu.Unlock()

	m.contracts[c.ID] = cloneContract(c)
	return nil
}

func (m *ContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contracts[id]; ok {
		return cloneContract(c), nil
	}
	return nil, apperror.ErrContractNotFound
}

func (m *ContractRepository) ExistsForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contracts {
		if c.ProposalID == proposalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *ContractRepository) ExistsForJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contracts {
		if c.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

func (m *ContractRepository) List(ctx context.Context, filter repository.ContractFilter) ([]*entity.Contract, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Contract
	for _, c := range m.contracts {
		switch filter.Role {
		case "client":
			if !c.IsClient(filter.UserID) {
				continue
			}
		case "freelancer":
			if !c.IsFreelancer(filter.UserID) {
				continue
			}
		default:
			if !c.IsParty(filter.UserID) {
				continue
			}
		}
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		result = append(result, cloneContract(c))
	}
	return result, len(result), nil
}

func (m *ContractRepository) Fund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, from, to valueobject.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.expect(id, from)
	if err != nil {
		return err
	}
	c.EscrowBalance = c.EscrowBalance.Add(amount)
	c.Status = to
	return nil
}

func (m *ContractRepository) Activate(ctx context.Context, id uuid.UUID, startDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.expect(id, valueobject.ContractStatusFunded)
	if err != nil {
		return err
	}
	c.Status = valueobject.ContractStatusActive
	c.StartDate = &startDate
	return nil
}

func (m *ContractRepository) AddMilestone(ctx context.Context, ms *entity.Milestone, contractStatus valueobject.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.expect(ms.ContractID, contractStatus)
	if err != nil {
		return err
	}
	stored := cloneMilestone(ms)
	stored.Position = len(c.Milestones)
	c.Milestones = append(c.Milestones, stored)
	return nil
}

func (m *ContractRepository) SaveMilestoneSubmission(ctx context.Context, ms *entity.Milestone, from valueobject.MilestoneStatus, fromSubmission *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[ms.ContractID]
	if !ok {
		return apperror.ErrContractNotFound
	}
	for i, stored := range c.Milestones {
		if stored.ID != ms.ID {
			continue
		}
		if stored.Status != from || !sameSubmission(stored.CurrentSubmissionID(), fromSubmission) {
			return apperror.ErrConcurrentUpdate
		}
		c.Milestones[i] = cloneMilestone(ms)
		return nil
	}
	return apperror.ErrMilestoneNotFound
}

func (m *ContractRepository) ReleasePayment(ctx context.Context, contractID, milestoneID uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok {
		return apperror.ErrContractNotFound
	}
	for _, stored := range c.Milestones {
		if stored.ID != milestoneID {
			continue
		}
		if stored.Status != valueobject.MilestoneStatusCompleted {
			return apperror.ErrConcurrentUpdate
		}
		if c.EscrowBalance.LessThan(amount) {
			return apperror.State("недостаточно средств в эскроу")
		}
		stored.Status = valueobject.MilestoneStatusPaid
		c.EscrowBalance = c.EscrowBalance.Sub(amount)
		return nil
	}
	return apperror.ErrMilestoneNotFound
}

func (m *ContractRepository) Complete(ctx context.Context, contract *entity.Contract, from valueobject.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.expect(contract.ID, from)
	if err != nil {
		return err
	}
	for _, stored := range c.Milestones {
		if stored.Status != valueobject.MilestoneStatusPaid {
			return apperror.State("все этапы должны быть оплачены до завершения контракта")
		}
	}
	c.Status = valueobject.ContractStatusCompleted
	c.EndDate = contract.EndDate
	m.jobs.mu.Lock()
	if j, ok := m.jobs.jobs[c.JobID]; ok && j.Status == valueobject.JobStatusInProgress {
		j.Status = valueobject.JobStatusCompleted
	}
	m.jobs.mu.Unlock()
	m.CompletedOrders[c.FreelancerID]++
	return nil
}

func sameSubmission(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *ContractRepository) expect(id uuid.UUID, status valueobject.ContractStatus) (*entity.Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	if c.Status != status {
		return nil, apperror.ErrConcurrentUpdate
	}
	return c, nil
}

// Get возвращает сохранённую копию контракта.
func (m *ContractRepository) Get(id uuid.UUID) *entity.Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contracts[id]; ok {
		return cloneContract(c)
	}
	return nil
}

type MessageRepository struct {
	mu       sync.Mutex
	messages []*entity.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{}
}

func between(msg *entity.Message, a, b uuid.UUID) bool {
	return (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a)
}

func (m *MessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (m *MessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			c := *msg
			return &c, nil
		}
	}
	return nil, apperror.ErrMessageNotFound
}

func (m *MessageRepository) FindConversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]*entity.Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Message
	for i := len(m.messages) - 1; i >= 0; i-- {
		if between(m.messages[i], userID, partnerID) {
			c := *m.messages[i]
			result = append(result, &c)
		}
	}
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

func (m *MessageRepository) ExistsBetween(ctx context.Context, userID, partnerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if between(msg, userID, partnerID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MessageRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPartner := make(map[uuid.UUID]*entity.ConversationSummary)
	var order []uuid.UUID
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		var partner uuid.UUID
		switch userID {
		case msg.SenderID:
			partner = msg.ReceiverID
		case msg.ReceiverID:
			partner = msg.SenderID
		default:
			continue
		}
		s, ok := byPartner[partner]
		if !ok {
			s = &entity.ConversationSummary{PartnerID: partner, LastMessage: *msg}
			byPartner[partner] = s
			order = append(order, partner)
		}
		if msg.ReceiverID == userID && !msg.IsRead {
			s.UnreadCount++
		}
	}
	result := make([]*entity.ConversationSummary, 0, len(order))
	for _, id := range order {
		result = append(result, byPartner[id])
	}
	return result, nil
}

func (m *MessageRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *MessageRepository) MarkConversationRead(ctx context.Context, readerID, partnerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, msg := range m.messages {
		if msg.ReceiverID == readerID && msg.SenderID == partnerID && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *MessageRepository) MarkRead(ctx context.Context, id, readerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id && msg.ReceiverID == readerID {
			now := time.Now()
			msg.IsRead = true
			msg.ReadAt = &now
			return nil
		}
	}
	return apperror.ErrMessageNotFound
}

// Notifier запоминает все отправленные события.
type Notifier struct {
	mu     sync.Mutex
	Events []entity.NotificationEvent
}

func (n *Notifier) Notify(ctx context.Context, event entity.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, event)
}

func (n *Notifier) Types() []valueobject.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]valueobject.NotificationType, 0, len(n.Events))
	for _, e := range n.Events {
		types = append(types, e.Type)
	}
	return types
}

type PublishedEvent struct {
	UserID uuid.UUID
	Event  string
	Data   any
}

type Realtime struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

func (r *Realtime) PublishToUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, PublishedEvent{UserID: userID, Event: event, Data: data})
}

type Users map[uuid.UUID]bool

func (u Users) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return u[id], nil
}

// ErrStorageDown возвращается Files для имён из FailNames.
var ErrStorageDown = errors.New("storage unavailable")

type Files struct {
	mu        sync.Mutex
	data      map[string][]byte
	FailNames map[string]bool
}

func NewFiles() *Files {
	return &Files{data: make(map[string][]byte), FailNames: make(map[string]bool)}
}

func (f *Files) Save(ctx context.Context, contractID uuid.UUID, filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNames[filename] {
		return "", ErrStorageDown
	}
	key := contractID.String() + "/" + uuid.NewString() + "_" + filename
	f.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *Files) Open(ctx context.Context, storageKey string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[storageKey]
	if !ok {
		return nil, 0, storage.ErrFileMissing
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Drop удаляет содержимое файла, оставляя ссылку на него в сдаче.
func (f *Files) Drop(storageKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, storageKey)
}

func (f *Files) DetectContentType(data []byte, declared string) string {
	if declared == "" {
		return "application/octet-stream"
	}
	return declared
}
