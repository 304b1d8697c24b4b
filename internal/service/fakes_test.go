package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/repository"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.seq++
	ticket.ID = fmt.Sprintf("t-%d", f.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	clone.UpdatedAt = time.Now()
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, ticket := range f.tickets {
		if ticket.Number == number {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.ServiceID != nil && ticket.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.Unassigned && ticket.AssigneeID != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) ClaimAssign(_ context.Context, ticketID, assigneeID string) (bool, error) {
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.AssigneeID != nil {
		return false, nil
	}
	ticket.AssigneeID = &assigneeID
	return true, nil
}

func (f *fakeTicketRepo) ListUnfinished(_ context.Context) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		switch ticket.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed,
			domain.TicketStatusCancelled, domain.TicketStatusRejected:
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) ListCreatedBetween(_ context.Context, serviceID string, from, to time.Time) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.ServiceID != serviceID {
			continue
		}
		if ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeServiceRepo struct {
	services map[string]*domain.Service
}

func newFakeServiceRepo(services ...*domain.Service) *fakeServiceRepo {
	repo := &fakeServiceRepo{services: map[string]*domain.Service{}}
	for _, svc := range services {
		repo.services[svc.ID] = svc
	}
	return repo
}

func (f *fakeServiceRepo) Create(_ context.Context, svc *domain.Service) error {
	f.services[svc.ID] = svc
	return nil
}

func (f *fakeServiceRepo) GetByID(_ context.Context, id string) (*domain.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return svc, nil
}

func (f *fakeServiceRepo) ListActive(_ context.Context) ([]domain.Service, error) {
	var result []domain.Service
	for _, svc := range f.services {
		if svc.IsActive {
			result = append(result, *svc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type fakeApprovalRepo struct {
	approvals []domain.Approval
	seq       int
}

func (f *fakeApprovalRepo) Create(_ context.Context, approval *domain.Approval) error {
	f.seq++
	approval.ID = fmt.Sprintf("a-%d", f.seq)
	approval.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	f.approvals = append(f.approvals, *approval)
	return nil
}

func (f *fakeApprovalRepo) GetLatestByTicket(_ context.Context, ticketID string) (*domain.Approval, error) {
	var latest *domain.Approval
	for i := range f.approvals {
		approval := &f.approvals[i]
		if approval.TicketID != ticketID {
			continue
		}
		if latest == nil || approval.CreatedAt.After(latest.CreatedAt) {
			latest = approval
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *latest
	return &clone, nil
}

func (f *fakeApprovalRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Approval, error) {
	var result []domain.Approval
	for _, approval := range f.approvals {
		if approval.TicketID == ticketID {
			result = append(result, approval)
		}
	}
	return result, nil
}

type fakeSLARepo struct {
	records map[string]*domain.SLATracking
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{records: map[string]*domain.SLATracking{}}
}

func (f *fakeSLARepo) Upsert(_ context.Context, record *domain.SLATracking) error {
	existing, ok := f.records[record.TicketID]
	if ok {
		record.IsResponseBreached = record.IsResponseBreached || existing.IsResponseBreached
		record.IsResolutionBreached = record.IsResolutionBreached || existing.IsResolutionBreached
		record.ID = existing.ID
	} else {
		record.ID = "sla-" + record.TicketID
	}
	clone := *record
	f.records[record.TicketID] = &clone
	return nil
}

func (f *fakeSLARepo) GetByTicket(_ context.Context, ticketID string) (*domain.SLATracking, error) {
	record, ok := f.records[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (f *fakeSLARepo) MarkBreached(_ context.Context, ticketID string, response, resolution bool) error {
	record, ok := f.records[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	record.IsResponseBreached = record.IsResponseBreached || response
	record.IsResolutionBreached = record.IsResolutionBreached || resolution
	return nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
	seq     int
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	f.seq++
	entry.ID = fmt.Sprintf("h-%d", f.seq)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*domain.User{}}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("u-%d", len(f.users)+1)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTemplateRepo struct {
	templates []domain.ChecklistTemplateItem
}

func (f *fakeTemplateRepo) ListActiveByType(_ context.Context, checklistType domain.ChecklistType) ([]domain.ChecklistTemplateItem, error) {
	var result []domain.ChecklistTemplateItem
	for _, tpl := range f.templates {
		if tpl.IsActive && tpl.ChecklistType == checklistType {
			result = append(result, tpl)
		}
	}
	return result, nil
}

type fakeChecklistRepo struct {
	instances map[string]*domain.ChecklistInstance
	items     map[string]*domain.ChecklistItem
	seq       int
}

func newFakeChecklistRepo() *fakeChecklistRepo {
	return &fakeChecklistRepo{
		instances: map[string]*domain.ChecklistInstance{},
		items:     map[string]*domain.ChecklistItem{},
	}
}

func (f *fakeChecklistRepo) CreateInstance(_ context.Context, instance *domain.ChecklistInstance) error {
	f.seq++
	instance.ID = fmt.Sprintf("ci-%d", f.seq)
	instance.CreatedAt = time.Now()
	instance.UpdatedAt = instance.CreatedAt
	for i := range instance.Items {
		f.seq++
		item := &instance.Items[i]
		item.ID = fmt.Sprintf("item-%d", f.seq)
		item.InstanceID = instance.ID
		clone := *item
		f.items[item.ID] = &clone
	}
	clone := *instance
	f.instances[instance.ID] = &clone
	return nil
}

func (f *fakeChecklistRepo) GetInstanceByID(_ context.Context, id string) (*domain.ChecklistInstance, error) {
	instance, ok := f.instances[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return f.withItems(instance), nil
}

func (f *fakeChecklistRepo) GetInstanceForUser(_ context.Context, userID string, checklistType domain.ChecklistType, date time.Time) (*domain.ChecklistInstance, error) {
	for _, instance := range f.instances {
		if instance.ClaimedByID == userID && instance.ChecklistType == checklistType && instance.Date.Equal(date) {
			return f.withItems(instance), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeChecklistRepo) ListInstances(_ context.Context, checklistType domain.ChecklistType, date time.Time) ([]domain.ChecklistInstance, error) {
	var result []domain.ChecklistInstance
	for _, instance := range f.instances {
		if instance.ChecklistType == checklistType && instance.Date.Equal(date) {
			result = append(result, *f.withItems(instance))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeChecklistRepo) GetItem(_ context.Context, itemID string) (*domain.ChecklistItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (f *fakeChecklistRepo) UpdateItem(_ context.Context, item *domain.ChecklistItem) error {
	if _, ok := f.items[item.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *item
	f.items[item.ID] = &clone
	return nil
}

func (f *fakeChecklistRepo) UpdateInstanceStatus(_ context.Context, instanceID string, status domain.ChecklistInstanceStatus) error {
	instance, ok := f.instances[instanceID]
	if !ok {
		return pgx.ErrNoRows
	}
	instance.Status = status
	return nil
}

func (f *fakeChecklistRepo) withItems(instance *domain.ChecklistInstance) *domain.ChecklistInstance {
	clone := *instance
	clone.Items = nil
	var ids []string
	for id, item := range f.items {
		if item.InstanceID == instance.ID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		clone.Items = append(clone.Items, *f.items[id])
	}
	return &clone
}

type capturedEvents struct {
	events []events.Event
}

func (c *capturedEvents) Publish(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturedEvents) Subscribe(events.EventType, events.EventHandler) {}

func (c *capturedEvents) ofType(eventType events.EventType) []events.Event {
	var result []events.Event
	for _, event := range c.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
