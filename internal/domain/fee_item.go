package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrFeeItemNotFound       = errors.New("fee item not found")
	ErrFeeItemInactive       = errors.New("fee item is inactive")
	ErrInvalidFeeKind        = errors.New("fee kind must be spp or ppdb")
	ErrInvalidFeeRef         = errors.New("fee reference must look like spp:ID or ppdb:ID")
	ErrFeeAmountInvalid      = errors.New("fee amount must be positive")
	ErrSchoolYearInvalid     = errors.New("school year must look like 2024/2025")
	ErrFeeMonthInvalid       = errors.New("SPP month must be between 1 and 12")
	ErrFeeMonthNotAllowed    = errors.New("only SPP items have a month")
	ErrFeeClassNotAllowed    = errors.New("only PPDB items can be scoped to a class")
	ErrFeeItemOutOfScope     = errors.New("fee item does not apply to the student's class")
	ErrFeeItemAlreadyCovered = errors.New("fee item already has a pending or settled payment")
)

// FeeKind distinguishes the two fee catalog variants
type FeeKind string

const (
	// FeeKindSPP is the recurring monthly tuition fee
	FeeKindSPP  FeeKind = "spp"
	// FeeKindPPDB is the one-time enrollment fee, optionally scoped to a class
	FeeKindPPDB FeeKind = "ppdb"
)

func (k FeeKind) IsValid() bool {
	return k == FeeKindSPP || k == FeeKindPPDB
}

// FeeRef identifies exactly one fee catalog entry
type FeeRef struct {
	Kind FeeKind `json:"kind"`
	ID   int32   `json:"id"`
}

// SPPRef returns a reference to an SPP item
func SPPRef(id int32) FeeRef { return FeeRef{Kind: FeeKindSPP, ID: id} }

// PPDBRef returns a reference to a PPDB item
func PPDBRef(id int32) FeeRef { return FeeRef{Kind: FeeKindPPDB, ID: id} }

func (r FeeRef) Validate() error {
	if !r.Kind.IsValid() || r.ID <= 0 {
		return ErrInvalidFeeRef
	}
	return nil
}

// String formats the reference as kind:id
func (r FeeRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseFeeRef parses "spp:12" or "ppdb:3"
func ParseFeeRef(s string) (FeeRef, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return FeeRef{}, ErrInvalidFeeRef
	}
	n, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return FeeRef{}, ErrInvalidFeeRef
	}
	ref := FeeRef{Kind: FeeKind(strings.ToLower(kind)), ID: int32(n)}
	if err := ref.Validate(); err != nil {
		return FeeRef{}, err
	}
	return ref, nil
}

// FeeRefFromColumns builds a reference from the nullable spp/ppdb foreign keys of a line item.
// Exactly one must be set.
func FeeRefFromColumns(sppID, ppdbID *int32) (FeeRef, error) {
	switch {
	case sppID != nil && ppdbID == nil:
		return SPPRef(*sppID), nil
	case ppdbID != nil && sppID == nil:
		return PPDBRef(*ppdbID), nil
	default:
		return FeeRef{}, ErrInvalidFeeRef
	}
}

// FeeItem is one entry of the fee catalog
type FeeItem struct {
	Kind       FeeKind         `json:"kind"`
	ID         int32           `json:"id"`
	Name       string          `json:"name"`
	SchoolYear string          `json:"schoolYear"`
	Month      *int32          `json:"month,omitempty"`   // SPP only
	ClassID    *int32          `json:"classId,omitempty"` // PPDB only, nil applies to every class
	Amount     decimal.Decimal `json:"amount"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Ref returns the catalog reference of the item
func (f *FeeItem) Ref() FeeRef {
	return FeeRef{Kind: f.Kind, ID: f.ID}
}

// AppliesToClass reports whether the item is billed to students of the class
func (f *FeeItem) AppliesToClass(classID int32) bool {
	if f.Kind == FeeKindSPP {
		return true
	}
	return f.ClassID == nil || *f.ClassID == classID
}

var schoolYearPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// ValidateSchoolYear checks the "YYYY/YYYY" format with consecutive years
func ValidateSchoolYear(s string) error {
	m := schoolYearPattern.FindStringSubmatch(s)
	if m == nil {
		return ErrSchoolYearInvalid
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return ErrSchoolYearInvalid
	}
	return nil
}

func (f *FeeItem) Validate() error {
	if !f.Kind.IsValid() {
		return ErrInvalidFeeKind
	}
	if f.Name == "" {
		return ErrNameRequired
	}
	if len(f.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateSchoolYear(f.SchoolYear); err != nil {
		return err
	}
	if f.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrFeeAmountInvalid
	}
	switch f.Kind {
	case FeeKindSPP:
		if f.Month == nil || *f.Month < 1 || *f.Month > 12 {
			return ErrFeeMonthInvalid
		}
		if f.ClassID != nil {
			return ErrFeeClassNotAllowed
		}
	case FeeKindPPDB:
		if f.Month != nil {
			return ErrFeeMonthNotAllowed
		}
	}
	return nil
}

// FeeItemFilters holds optional filters for listing the catalog
type FeeItemFilters struct {
	SchoolYear string
	ActiveOnly bool
}

// UpdateFeeItemData holds the mutable fields of a fee item
type UpdateFeeItemData struct {
	Name       string
	SchoolYear string
	Month      *int32
	ClassID    *int32
	Amount     decimal.Decimal
}

// FeeItemRepository defines the interface for fee catalog persistence operations
type FeeItemRepository interface {
	Create(ctx context.Context, item *FeeItem) (*FeeItem, error)
	GetByRef(ctx context.Context, ref FeeRef) (*FeeItem, error)
	GetByRefs(ctx context.Context, refs []FeeRef) ([]*FeeItem, error)
	List(ctx context.Context, kind FeeKind, filters FeeItemFilters) ([]*FeeItem, error)
	// ListActiveForClass returns every active SPP item and the active PPDB items
	// that are unscoped or scoped to classID.
	ListActiveForClass(ctx context.Context, classID int32) ([]*FeeItem, error)
	Update(ctx context.Context, ref FeeRef, data UpdateFeeItemData) (*FeeItem, error)
	SetActive(ctx context.Context, ref FeeRef, active bool) (*FeeItem, error)
}
