package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeeItemRepository implements domain.FeeItemRepository over the spp_items and ppdb_items tables
type FeeItemRepository struct {
	pool *pgxpool.Pool
}

// NewFeeItemRepository creates a new FeeItemRepository
func NewFeeItemRepository(pool *pgxpool.Pool) *FeeItemRepository {
	return &FeeItemRepository{pool: pool}
}

// Both selects produce the same column list so they can be combined with UNION ALL.
const (
	sppSelect = `
	SELECT 'spp', id, name, school_year, month::int, NULL::int, amount, active, created_at, updated_at
	FROM spp_items`
	ppdbSelect = `
	SELECT 'ppdb', id, name, school_year, NULL::int, class_id, amount, active, created_at, updated_at
	FROM ppdb_items`
)

func selectForKind(kind domain.FeeKind) (string, error) {
	switch kind {
	case domain.FeeKindSPP:
		return sppSelect, nil
	case domain.FeeKindPPDB:
		return ppdbSelect, nil
	}
	return "", domain.ErrInvalidFeeKind
}

func tableForKind(kind domain.FeeKind) (string, error) {
	switch kind {
	case domain.FeeKindSPP:
		return "spp_items", nil
	case domain.FeeKindPPDB:
		return "ppdb_items", nil
	}
	return "", domain.ErrInvalidFeeKind
}

// Create inserts a new SPP or PPDB item
func (r *FeeItemRepository) Create(ctx context.Context, item *domain.FeeItem) (*domain.FeeItem, error) {
	amount, err := decimalToPgNumeric(item.Amount)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}

	var id int32
	switch item.Kind {
	case domain.FeeKindSPP:
		err = r.pool.QueryRow(ctx, `
			INSERT INTO spp_items (name, school_year, month, amount, active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING id`,
			item.Name, item.SchoolYear, item.Month, amount,
		).Scan(&id)
	case domain.FeeKindPPDB:
		err = r.pool.QueryRow(ctx, `
			INSERT INTO ppdb_items (name, school_year, class_id, amount, active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING id`,
			item.Name, item.SchoolYear, item.ClassID, amount,
		).Scan(&id)
	default:
		return nil, domain.ErrInvalidFeeKind
	}
	if err != nil {
		return nil, fmt.Errorf("create %s item: %w", item.Kind, err)
	}
	return r.GetByRef(ctx, domain.FeeRef{Kind: item.Kind, ID: id})
}

// GetByRef retrieves a single fee item
func (r *FeeItemRepository) GetByRef(ctx context.Context, ref domain.FeeRef) (*domain.FeeItem, error) {
	query, err := selectForKind(ref.Kind)
	if err != nil {
		return nil, err
	}
	return scanFeeItem(r.pool.QueryRow(ctx, query+` WHERE id = $1`, ref.ID))
}

// GetByRefs retrieves every existing item among refs. Unknown refs are omitted.
func (r *FeeItemRepository) GetByRefs(ctx context.Context, refs []domain.FeeRef) ([]*domain.FeeItem, error) {
	var sppIDs, ppdbIDs []int32
	for _, ref := range refs {
		switch ref.Kind {
		case domain.FeeKindSPP:
			sppIDs = append(sppIDs, ref.ID)
		case domain.FeeKindPPDB:
			ppdbIDs = append(ppdbIDs, ref.ID)
		default:
			return nil, domain.ErrInvalidFeeRef
		}
	}
	if sppIDs == nil {
		sppIDs = []int32{}
	}
	if ppdbIDs == nil {
		ppdbIDs = []int32{}
	}

	rows, err := r.pool.Query(ctx,
		sppSelect+` WHERE id = ANY($1)
		UNION ALL`+ppdbSelect+` WHERE id = ANY($2)`,
		sppIDs, ppdbIDs,
	)
	if err != nil {
		return nil, err
	}
	return collectFeeItems(rows)
}

// List returns the catalog of one kind
func (r *FeeItemRepository) List(ctx context.Context, kind domain.FeeKind, filters domain.FeeItemFilters) ([]*domain.FeeItem, error) {
	query, err := selectForKind(kind)
	if err != nil {
		return nil, err
	}
	query += ` WHERE ($1::text = '' OR school_year = $1) AND (NOT $2::boolean OR active)`
	if kind == domain.FeeKindSPP {
		query += ` ORDER BY school_year, month, id`
	} else {
		query += ` ORDER BY school_year, name, id`
	}

	rows, err := r.pool.Query(ctx, query, filters.SchoolYear, filters.ActiveOnly)
	if err != nil {
		return nil, err
	}
	return collectFeeItems(rows)
}

// ListActiveForClass returns every active item billed to students of a class.
// SPP items apply to all classes; PPDB items apply when unscoped or scoped to classID.
func (r *FeeItemRepository) ListActiveForClass(ctx context.Context, classID int32) ([]*domain.FeeItem, error) {
	rows, err := r.pool.Query(ctx,
		sppSelect+` WHERE active
		UNION ALL`+ppdbSelect+` WHERE active AND (class_id IS NULL OR class_id = $1)
		ORDER BY 1, 4, 2`,
		classID,
	)
	if err != nil {
		return nil, err
	}
	return collectFeeItems(rows)
}

// Update changes an item's descriptive fields and amount
func (r *FeeItemRepository) Update(ctx context.Context, ref domain.FeeRef, data domain.UpdateFeeItemData) (*domain.FeeItem, error) {
	amount, err := decimalToPgNumeric(data.Amount)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}

	var tagRows int64
	switch ref.Kind {
	case domain.FeeKindSPP:
		tag, err := r.pool.Exec(ctx, `
			UPDATE spp_items
			SET name = $2, school_year = $3, month = $4, amount = $5, updated_at = NOW()
			WHERE id = $1`,
			ref.ID, data.Name, data.SchoolYear, data.Month, amount,
		)
		if err != nil {
			return nil, err
		}
		tagRows = tag.RowsAffected()
	case domain.FeeKindPPDB:
		tag, err := r.pool.Exec(ctx, `
			UPDATE ppdb_items
			SET name = $2, school_year = $3, class_id = $4, amount = $5, updated_at = NOW()
			WHERE id = $1`,
			ref.ID, data.Name, data.SchoolYear, data.ClassID, amount,
		)
		if err != nil {
			return nil, err
		}
		tagRows = tag.RowsAffected()
	default:
		return nil, domain.ErrInvalidFeeKind
	}
	if tagRows == 0 {
		return nil, domain.ErrFeeItemNotFound
	}
	return r.GetByRef(ctx, ref)
}

// SetActive activates or deactivates an item
func (r *FeeItemRepository) SetActive(ctx context.Context, ref domain.FeeRef, active bool) (*domain.FeeItem, error) {
	table, err := tableForKind(ref.Kind)
	if err != nil {
		return nil, err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET active = $2, updated_at = NOW() WHERE id = $1`, ref.ID, active)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrFeeItemNotFound
	}
	return r.GetByRef(ctx, ref)
}

func collectFeeItems(rows pgx.Rows) ([]*domain.FeeItem, error) {
	defer rows.Close()

	items := []*domain.FeeItem{}
	for rows.Next() {
		item, err := scanFeeItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanFeeItem(row pgx.Row) (*domain.FeeItem, error) {
	var (
		item   domain.FeeItem
		kind   string
		amount pgtype.Numeric
	)
	err := row.Scan(&kind, &item.ID, &item.Name, &item.SchoolYear, &item.Month, &item.ClassID,
		&amount, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeeItemNotFound
		}
		return nil, err
	}
	item.Kind = domain.FeeKind(kind)
	item.Amount = pgNumericToDecimal(amount)
	return &item, nil
}
