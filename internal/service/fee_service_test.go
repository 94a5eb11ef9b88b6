package service

import (
	"context"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/testutil"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeeFixture() (*FeeService, *testutil.MockFeeItemRepository, *testutil.MockEventPublisher) {
	items := testutil.NewMockFeeItemRepository()
	classes := testutil.NewMockClassRepository()
	classes.AddClass(&domain.SchoolClass{ID: testClassID, Name: "7A"})
	publisher := &testutil.MockEventPublisher{}

	svc := NewFeeService(items, classes)
	svc.SetEventPublisher(publisher)
	return svc, items, publisher
}

func TestFeeService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   domain.Actor
		kind    domain.FeeKind
		input   FeeItemInput
		wantErr error
	}{
		{
			name:  "spp",
			actor: adminActor,
			kind:  domain.FeeKindSPP,
			input: FeeItemInput{Name: "SPP Agustus", SchoolYear: "2024/2025", Month: int32Ptr(8), Amount: decimal.NewFromInt(105000)},
		},
		{
			name:  "ppdb scoped to class",
			actor: adminActor,
			kind:  domain.FeeKindPPDB,
			input: FeeItemInput{Name: "Seragam", SchoolYear: "2024/2025", ClassID: int32Ptr(testClassID), Amount: decimal.NewFromInt(350000)},
		},
		{
			name:    "not admin",
			actor:   studentActor,
			kind:    domain.FeeKindSPP,
			input:   FeeItemInput{Name: "SPP", SchoolYear: "2024/2025", Month: int32Ptr(8), Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "unknown kind",
			actor:   adminActor,
			kind:    "infaq",
			input:   FeeItemInput{Name: "Infaq", SchoolYear: "2024/2025", Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrInvalidFeeKind,
		},
		{
			name:    "zero amount",
			actor:   adminActor,
			kind:    domain.FeeKindPPDB,
			input:   FeeItemInput{Name: "Buku", SchoolYear: "2024/2025", Amount: decimal.Zero},
			wantErr: domain.ErrFeeAmountInvalid,
		},
		{
			name:    "spp without month",
			actor:   adminActor,
			kind:    domain.FeeKindSPP,
			input:   FeeItemInput{Name: "SPP", SchoolYear: "2024/2025", Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrFeeMonthInvalid,
		},
		{
			name:    "bad school year",
			actor:   adminActor,
			kind:    domain.FeeKindPPDB,
			input:   FeeItemInput{Name: "Buku", SchoolYear: "2024/2026", Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrSchoolYearInvalid,
		},
		{
			name:    "unknown class",
			actor:   adminActor,
			kind:    domain.FeeKindPPDB,
			input:   FeeItemInput{Name: "Buku", SchoolYear: "2024/2025", ClassID: int32Ptr(99), Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrClassNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, items, publisher := newFeeFixture()
			item, err := svc.Create(ctx, tt.actor, tt.kind, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, items.Items)
				assert.Empty(t, publisher.Published())
				return
			}
			require.NoError(t, err)
			assert.True(t, item.Active)
			assert.Equal(t, tt.kind, item.Kind)

			events := publisher.Published()
			require.Len(t, events, 1)
			assert.Equal(t, websocket.AdminChannel, events[0].Channel)
			assert.Equal(t, "fee_item.updated", events[0].Event.Type)
		})
	}
}

func TestFeeService_UpdateAndDeactivate(t *testing.T) {
	svc, items, _ := newFeeFixture()
	ctx := context.Background()
	items.AddItem(&domain.FeeItem{
		Kind: domain.FeeKindSPP, ID: 1, Name: "SPP Juli", SchoolYear: "2024/2025",
		Month: int32Ptr(7), Amount: decimal.NewFromInt(105000), Active: true,
	})

	updated, err := svc.Update(ctx, adminActor, domain.SPPRef(1), FeeItemInput{
		Name: "SPP Juli", SchoolYear: "2024/2025", Month: int32Ptr(7), Amount: decimal.NewFromInt(110000),
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(110000)))

	_, err = svc.Update(ctx, adminActor, domain.SPPRef(2), FeeItemInput{
		Name: "SPP", SchoolYear: "2024/2025", Month: int32Ptr(7), Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrFeeItemNotFound)

	item, err := svc.SetActive(ctx, adminActor, domain.SPPRef(1), false)
	require.NoError(t, err)
	assert.False(t, item.Active)

	_, err = svc.SetActive(ctx, studentActor, domain.SPPRef(1), true)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetActive(ctx, adminActor, domain.FeeRef{Kind: "x", ID: 1}, true)
	assert.ErrorIs(t, err, domain.ErrInvalidFeeRef)
}

func TestFeeService_List(t *testing.T) {
	svc, items, _ := newFeeFixture()
	ctx := context.Background()
	items.AddItem(&domain.FeeItem{Kind: domain.FeeKindSPP, ID: 1, Name: "SPP Juli", SchoolYear: "2024/2025", Month: int32Ptr(7), Amount: decimal.NewFromInt(1), Active: true})
	items.AddItem(&domain.FeeItem{Kind: domain.FeeKindSPP, ID: 2, Name: "SPP Juli", SchoolYear: "2025/2026", Month: int32Ptr(7), Amount: decimal.NewFromInt(1), Active: false})
	items.AddItem(&domain.FeeItem{Kind: domain.FeeKindPPDB, ID: 1, Name: "Gedung", SchoolYear: "2024/2025", Amount: decimal.NewFromInt(1), Active: true})

	list, err := svc.List(ctx, domain.FeeKindSPP, domain.FeeItemFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(ctx, domain.FeeKindSPP, domain.FeeItemFilters{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int32(1), list[0].ID)

	list, err = svc.List(ctx, domain.FeeKindSPP, domain.FeeItemFilters{SchoolYear: "2025/2026"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int32(2), list[0].ID)

	_, err = svc.List(ctx, "infaq", domain.FeeItemFilters{})
	assert.ErrorIs(t, err, domain.ErrInvalidFeeKind)

	_, err = svc.List(ctx, domain.FeeKindSPP, domain.FeeItemFilters{SchoolYear: "2025"})
	assert.ErrorIs(t, err, domain.ErrSchoolYearInvalid)

	item, err := svc.Get(ctx, domain.PPDBRef(1))
	require.NoError(t, err)
	assert.Equal(t, "Gedung", item.Name)
}
