package service

import (
	"context"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// FeeService manages the SPP and PPDB catalog
type FeeService struct {
	feeItemRepo    domain.FeeItemRepository
	classRepo      domain.ClassRepository
	eventPublisher websocket.EventPublisher
}

// NewFeeService creates a new FeeService
func NewFeeService(feeItemRepo domain.FeeItemRepository, classRepo domain.ClassRepository) *FeeService {
	return &FeeService{
		feeItemRepo: feeItemRepo,
		classRepo:   classRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *FeeService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *FeeService) publishUpdated(item *domain.FeeItem) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(websocket.AdminChannel, websocket.FeeItemUpdated(item))
	}
}

// FeeItemInput holds the fields for creating or updating a fee item
type FeeItemInput struct {
	Name       string
	SchoolYear string
	Month      *int32
	ClassID    *int32
	Amount     decimal.Decimal
}

func (s *FeeService) buildItem(ctx context.Context, kind domain.FeeKind, input FeeItemInput) (*domain.FeeItem, error) {
	item := &domain.FeeItem{
		Kind:       kind,
		Name:       strings.TrimSpace(input.Name),
		SchoolYear: strings.TrimSpace(input.SchoolYear),
		Month:      input.Month,
		ClassID:    input.ClassID,
		Amount:     input.Amount,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.ClassID != nil {
		if _, err := s.classRepo.GetByID(ctx, *item.ClassID); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// Create adds a new fee item to the catalog. Admin only.
func (s *FeeService) Create(ctx context.Context, actor domain.Actor, kind domain.FeeKind, input FeeItemInput) (*domain.FeeItem, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	item, err := s.buildItem(ctx, kind, input)
	if err != nil {
		return nil, err
	}
	created, err := s.feeItemRepo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	s.publishUpdated(created)
	return created, nil
}

// Update changes a fee item. Existing line items keep the amount they were billed at.
func (s *FeeService) Update(ctx context.Context, actor domain.Actor, ref domain.FeeRef, input FeeItemInput) (*domain.FeeItem, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	item, err := s.buildItem(ctx, ref.Kind, input)
	if err != nil {
		return nil, err
	}
	updated, err := s.feeItemRepo.Update(ctx, ref, domain.UpdateFeeItemData{
		Name:       item.Name,
		SchoolYear: item.SchoolYear,
		Month:      item.Month,
		ClassID:    item.ClassID,
		Amount:     item.Amount,
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(updated)
	return updated, nil
}

// SetActive activates or deactivates a fee item. Inactive items are no longer billed.
func (s *FeeService) SetActive(ctx context.Context, actor domain.Actor, ref domain.FeeRef, active bool) (*domain.FeeItem, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	item, err := s.feeItemRepo.SetActive(ctx, ref, active)
	if err != nil {
		return nil, err
	}
	s.publishUpdated(item)
	return item, nil
}

// Get returns one fee item
func (s *FeeService) Get(ctx context.Context, ref domain.FeeRef) (*domain.FeeItem, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.feeItemRepo.GetByRef(ctx, ref)
}

// List returns the catalog of one kind
func (s *FeeService) List(ctx context.Context, kind domain.FeeKind, filters domain.FeeItemFilters) ([]*domain.FeeItem, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidFeeKind
	}
	if filters.SchoolYear != "" {
		if err := domain.ValidateSchoolYear(filters.SchoolYear); err != nil {
			return nil, err
		}
	}
	return s.feeItemRepo.List(ctx, kind, filters)
}
