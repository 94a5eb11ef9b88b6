package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	ByID     map[uuid.UUID]*domain.User
	CreateFn func(user *domain.User) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
		ByID:  make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(user)
	}
	if _, exists := m.Users[user.Auth0ID]; exists {
		return nil, domain.ErrAlreadyExists
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.AddUser(user)
	return user, nil
}

// List returns all users sorted by name
func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(m.ByID))
	for _, u := range m.ByID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
	m.ByID[user.ID] = user
}

// MockClassRepository is a mock implementation of domain.ClassRepository
type MockClassRepository struct {
	Classes map[int32]*domain.SchoolClass
	NextID  int32
}

// NewMockClassRepository creates a new MockClassRepository
func NewMockClassRepository() *MockClassRepository {
	return &MockClassRepository{
		Classes: make(map[int32]*domain.SchoolClass),
		NextID:  1,
	}
}

// Create creates a new class
func (m *MockClassRepository) Create(ctx context.Context, class *domain.SchoolClass) (*domain.SchoolClass, error) {
	for _, c := range m.Classes {
		if strings.EqualFold(c.Name, class.Name) {
			return nil, domain.ErrAlreadyExists
		}
	}
	class.ID = m.NextID
	m.NextID++
	m.Classes[class.ID] = class
	return class, nil
}

// GetByID retrieves a class by ID
func (m *MockClassRepository) GetByID(ctx context.Context, id int32) (*domain.SchoolClass, error) {
	if c, ok := m.Classes[id]; ok {
		return c, nil
	}
	return nil, domain.ErrClassNotFound
}

// List returns all classes sorted by name
func (m *MockClassRepository) List(ctx context.Context) ([]*domain.SchoolClass, error) {
	classes := make([]*domain.SchoolClass, 0, len(m.Classes))
	for _, c := range m.Classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// AddClass adds a class to the mock repository (helper for tests)
func (m *MockClassRepository) AddClass(class *domain.SchoolClass) {
	m.Classes[class.ID] = class
	if class.ID >= m.NextID {
		m.NextID = class.ID + 1
	}
}

// MockStudentRepository is a mock implementation of domain.StudentRepository
type MockStudentRepository struct {
	Students  map[int32]*domain.Student
	NextID    int32
	GetByIDFn func(id int32) (*domain.Student, error)
}

// NewMockStudentRepository creates a new MockStudentRepository
func NewMockStudentRepository() *MockStudentRepository {
	return &MockStudentRepository{
		Students: make(map[int32]*domain.Student),
		NextID:   1,
	}
}

// Create creates a new student
func (m *MockStudentRepository) Create(ctx context.Context, student *domain.Student) (*domain.Student, error) {
	for _, s := range m.Students {
		if s.NIS == student.NIS {
			return nil, domain.ErrNISAlreadyExists
		}
	}
	student.ID = m.NextID
	m.NextID++
	student.Active = true
	m.Students[student.ID] = student
	return student, nil
}

// GetByID retrieves a student by ID
func (m *MockStudentRepository) GetByID(ctx context.Context, id int32) (*domain.Student, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	if s, ok := m.Students[id]; ok {
		return s, nil
	}
	return nil, domain.ErrStudentNotFound
}

// List returns students matching the filters sorted by ID
func (m *MockStudentRepository) List(ctx context.Context, filters domain.StudentFilters) ([]*domain.Student, error) {
	students := []*domain.Student{}
	search := strings.ToLower(strings.TrimSpace(filters.Search))
	for _, s := range m.Students {
		if filters.ClassID != nil && s.ClassID != *filters.ClassID {
			continue
		}
		if filters.ActiveOnly && !s.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) && !strings.Contains(strings.ToLower(s.NIS), search) {
			continue
		}
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

// Update updates a student
func (m *MockStudentRepository) Update(ctx context.Context, id int32, data domain.UpdateStudentData) (*domain.Student, error) {
	s, ok := m.Students[id]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	s.Name = data.Name
	s.ClassID = data.ClassID
	s.ParentPhone = data.ParentPhone
	return s, nil
}

// SetActive activates or deactivates a student
func (m *MockStudentRepository) SetActive(ctx context.Context, id int32, active bool) (*domain.Student, error) {
	s, ok := m.Students[id]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	s.Active = active
	return s, nil
}

// AddStudent adds a student to the mock repository (helper for tests)
func (m *MockStudentRepository) AddStudent(student *domain.Student) {
	m.Students[student.ID] = student
	if student.ID >= m.NextID {
		m.NextID = student.ID + 1
	}
}

// MockFeeItemRepository is a mock implementation of domain.FeeItemRepository
type MockFeeItemRepository struct {
	Items  map[domain.FeeRef]*domain.FeeItem
	NextID map[domain.FeeKind]int32
}

// NewMockFeeItemRepository creates a new MockFeeItemRepository
func NewMockFeeItemRepository() *MockFeeItemRepository {
	return &MockFeeItemRepository{
		Items:  make(map[domain.FeeRef]*domain.FeeItem),
		NextID: map[domain.FeeKind]int32{domain.FeeKindSPP: 1, domain.FeeKindPPDB: 1},
	}
}

// Create creates a new fee item
func (m *MockFeeItemRepository) Create(ctx context.Context, item *domain.FeeItem) (*domain.FeeItem, error) {
	item.ID = m.NextID[item.Kind]
	m.NextID[item.Kind]++
	item.Active = true
	m.Items[item.Ref()] = item
	return item, nil
}

// GetByRef retrieves a fee item
func (m *MockFeeItemRepository) GetByRef(ctx context.Context, ref domain.FeeRef) (*domain.FeeItem, error) {
	if item, ok := m.Items[ref]; ok {
		return item, nil
	}
	return nil, domain.ErrFeeItemNotFound
}

// GetByRefs retrieves every existing item among refs
func (m *MockFeeItemRepository) GetByRefs(ctx context.Context, refs []domain.FeeRef) ([]*domain.FeeItem, error) {
	items := []*domain.FeeItem{}
	for _, ref := range refs {
		if item, ok := m.Items[ref]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// List returns the items of one kind
func (m *MockFeeItemRepository) List(ctx context.Context, kind domain.FeeKind, filters domain.FeeItemFilters) ([]*domain.FeeItem, error) {
	items := []*domain.FeeItem{}
	for _, item := range m.sorted() {
		if item.Kind != kind {
			continue
		}
		if filters.SchoolYear != "" && item.SchoolYear != filters.SchoolYear {
			continue
		}
		if filters.ActiveOnly && !item.Active {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ListActiveForClass returns the active items billed to a class
func (m *MockFeeItemRepository) ListActiveForClass(ctx context.Context, classID int32) ([]*domain.FeeItem, error) {
	items := []*domain.FeeItem{}
	for _, item := range m.sorted() {
		if item.Active && item.AppliesToClass(classID) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Update updates a fee item
func (m *MockFeeItemRepository) Update(ctx context.Context, ref domain.FeeRef, data domain.UpdateFeeItemData) (*domain.FeeItem, error) {
	item, ok := m.Items[ref]
	if !ok {
		return nil, domain.ErrFeeItemNotFound
	}
	item.Name = data.Name
	item.SchoolYear = data.SchoolYear
	item.Month = data.Month
	item.ClassID = data.ClassID
	item.Amount = data.Amount
	return item, nil
}

// SetActive activates or deactivates a fee item
func (m *MockFeeItemRepository) SetActive(ctx context.Context, ref domain.FeeRef, active bool) (*domain.FeeItem, error) {
	item, ok := m.Items[ref]
	if !ok {
		return nil, domain.ErrFeeItemNotFound
	}
	item.Active = active
	return item, nil
}

// AddItem adds a fee item to the mock repository (helper for tests)
func (m *MockFeeItemRepository) AddItem(item *domain.FeeItem) {
	m.Items[item.Ref()] = item
	if item.ID >= m.NextID[item.Kind] {
		m.NextID[item.Kind] = item.ID + 1
	}
}

func (m *MockFeeItemRepository) sorted() []*domain.FeeItem {
	items := make([]*domain.FeeItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind > items[j].Kind // spp before ppdb
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// MockPaymentRepository is an in-memory domain.PaymentRepository that keeps
// the same coverage and transition rules as the database implementation.
type MockPaymentRepository struct {
	Payments          map[int32]*domain.Payment
	NextID            int32
	NextItemID        int32
	Students          *MockStudentRepository
	CreateWithItemsFn func(payment *domain.Payment) (*domain.Payment, error)
	TransitionFn      func(id int32, t domain.PaymentTransition) (*domain.Payment, error)
	mu                sync.Mutex
}

// NewMockPaymentRepository creates a new MockPaymentRepository.
// When students is non-nil it is used to check existence and fill names.
func NewMockPaymentRepository(students *MockStudentRepository) *MockPaymentRepository {
	return &MockPaymentRepository{
		Payments:   make(map[int32]*domain.Payment),
		NextID:     1,
		NextItemID: 1,
		Students:   students,
	}
}

// CreateWithItems stores a payment after checking that none of its items is covered
func (m *MockPaymentRepository) CreateWithItems(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if m.CreateWithItemsFn != nil {
		return m.CreateWithItemsFn(payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Students != nil {
		student, ok := m.Students.Students[payment.StudentID]
		if !ok {
			return nil, domain.ErrStudentNotFound
		}
		payment.StudentName = student.Name
		payment.ClassName = student.ClassName
	}

	covered := map[domain.FeeRef]bool{}
	for _, p := range m.Payments {
		if p.StudentID != payment.StudentID {
			continue
		}
		for _, item := range p.Items {
			if item.Status.CoversItem() {
				covered[item.Target] = true
			}
		}
	}
	for _, ref := range payment.Refs() {
		if covered[ref] {
			return nil, domain.ErrFeeItemAlreadyCovered
		}
	}

	payment.ID = m.NextID
	m.NextID++
	payment.Status = domain.PaymentStatusPending
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	for _, item := range payment.Items {
		item.ID = m.NextItemID
		m.NextItemID++
		item.PaymentID = payment.ID
		item.StudentID = payment.StudentID
		item.Status = domain.PaymentStatusPending
	}
	m.Payments[payment.ID] = payment
	return payment, nil
}

// GetByID retrieves a payment
func (m *MockPaymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Payments[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// ListByStudent returns a student's payments, newest first
func (m *MockPaymentRepository) ListByStudent(ctx context.Context, studentID int32) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payments := []*domain.Payment{}
	for _, p := range m.sortedLocked() {
		if p.StudentID == studentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

// List returns payments matching the filters with pagination
func (m *MockPaymentRepository) List(ctx context.Context, filters domain.PaymentFilters) (*domain.PaginatedPayments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	if filters.Page > 0 {
		page = filters.Page
	}
	if filters.PageSize > 0 {
		pageSize = filters.PageSize
		if pageSize > domain.MaxPageSize {
			pageSize = domain.MaxPageSize
		}
	}

	matched := []*domain.Payment{}
	for _, p := range m.sortedLocked() {
		if filters.Status != nil && p.Status != *filters.Status {
			continue
		}
		if filters.StudentID != nil && p.StudentID != *filters.StudentID {
			continue
		}
		if filters.ClassID != nil && m.Students != nil {
			s, ok := m.Students.Students[p.StudentID]
			if !ok || s.ClassID != *filters.ClassID {
				continue
			}
		}
		if filters.From != nil && p.SubmittedAt.Before(*filters.From) {
			continue
		}
		if filters.To != nil && !p.SubmittedAt.Before(*filters.To) {
			continue
		}
		matched = append(matched, p)
	}

	total := int64(len(matched))
	start := int((page - 1) * pageSize)
	end := start + int(pageSize)
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := int32(total / int64(pageSize))
	if total%int64(pageSize) > 0 {
		totalPages++
	}
	return &domain.PaginatedPayments{
		Data:       matched[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// ListLineItemsByStudent returns a student's line items filtered by status
func (m *MockPaymentRepository) ListLineItemsByStudent(ctx context.Context, studentID int32, statuses ...domain.PaymentStatus) ([]*domain.PaymentLineItem, error) {
	all, _ := m.ListLineItems(ctx, statuses...)
	items := []*domain.PaymentLineItem{}
	for _, item := range all {
		if item.StudentID == studentID {
			items = append(items, item)
		}
	}
	return items, nil
}

// ListLineItems returns every line item filtered by status
func (m *MockPaymentRepository) ListLineItems(ctx context.Context, statuses ...domain.PaymentStatus) ([]*domain.PaymentLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []*domain.PaymentLineItem{}
	for _, p := range m.sortedLocked() {
		for _, item := range p.Items {
			if len(statuses) == 0 || containsStatus(statuses, item.Status) {
				items = append(items, item)
			}
		}
	}
	return items, nil
}

// Transition moves a pending payment and its items to t.To
func (m *MockPaymentRepository) Transition(ctx context.Context, id int32, t domain.PaymentTransition) (*domain.Payment, error) {
	if m.TransitionFn != nil {
		return m.TransitionFn(id, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.Payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return nil, domain.ErrPaymentNotPending
	}
	p.Status = t.To
	p.Note = t.Note
	reviewer := t.ReviewedBy
	p.ReviewedBy = &reviewer
	if t.To == domain.PaymentStatusSettled {
		at := t.At
		p.ApprovedAt = &at
	}
	for _, item := range p.Items {
		item.Status = t.To
		if t.To == domain.PaymentStatusSettled {
			item.PaidAmount = item.BilledAmount
		} else {
			item.PaidAmount = decimal.Zero
		}
	}
	p.UpdatedAt = time.Now()
	return p, nil
}

// CountByStatus counts payments in a status
func (m *MockPaymentRepository) CountByStatus(ctx context.Context, status domain.PaymentStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, p := range m.Payments {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

// SumSettledBetween sums paid totals of payments approved in [from, to)
func (m *MockPaymentRepository) SumSettledBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, p := range m.Payments {
		if p.Status != domain.PaymentStatusSettled || p.ApprovedAt == nil {
			continue
		}
		if !p.ApprovedAt.Before(from) && p.ApprovedAt.Before(to) {
			sum = sum.Add(p.TotalPaid)
		}
	}
	return sum, nil
}

func (m *MockPaymentRepository) sortedLocked() []*domain.Payment {
	payments := make([]*domain.Payment, 0, len(m.Payments))
	for _, p := range m.Payments {
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments
}

func containsStatus(statuses []domain.PaymentStatus, s domain.PaymentStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// MockProofRepository is an in-memory storage.ProofRepository
type MockProofRepository struct {
	Objects  map[string][]byte
	Deleted  []string
	UploadFn func(key string) (string, error)
	mu       sync.Mutex
}

// NewMockProofRepository creates a new MockProofRepository
func NewMockProofRepository() *MockProofRepository {
	return &MockProofRepository{Objects: make(map[string][]byte)}
}

// Upload stores the object and returns its key
func (m *MockProofRepository) Upload(ctx context.Context, objectKey string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(objectKey)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectKey] = buf.Bytes()
	return objectKey, nil
}

// Delete removes an object
func (m *MockProofRepository) Delete(ctx context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectKey)
	m.Deleted = append(m.Deleted, objectKey)
	return nil
}

// GeneratePresignedURL returns a fake URL for the key
func (m *MockProofRepository) GeneratePresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return "https://proofs.test/" + objectKey + "?expires=" + expiry.String(), nil
}

// SentMessage is one message captured by MockMessenger
type SentMessage struct {
	To      string
	Message string
}

// MockMessenger records messages instead of sending them
type MockMessenger struct {
	Sent   []SentMessage
	SendFn func(to, message string) error
	mu     sync.Mutex
}

// Send records the message
func (m *MockMessenger) Send(ctx context.Context, to, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{To: to, Message: message})
	if m.SendFn != nil {
		return m.SendFn(to, message)
	}
	return nil
}

// Messages returns a copy of the recorded messages
func (m *MockMessenger) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// PublishedEvent is one event captured by MockEventPublisher
type PublishedEvent struct {
	Channel string
	Event   websocket.Event
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Events []PublishedEvent
	mu     sync.Mutex
}

// Publish records the event
func (m *MockEventPublisher) Publish(channel string, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{Channel: channel, Event: event})
}

// Published returns a copy of the recorded events
func (m *MockEventPublisher) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
