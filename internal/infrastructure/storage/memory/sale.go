package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/internal/domain/documents/sale"
)

type saleState struct {
	headers map[id.ID]sale.Sale
	lines   map[id.ID][]sale.Line
}

// SaleRepo stores sale headers and lines.
type SaleRepo struct {
	store *Store
	state saleState
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates the sales tables.
func NewSaleRepo(store *Store) *SaleRepo {
	r := &SaleRepo{
		store: store,
		state: saleState{
			headers: make(map[id.ID]sale.Sale),
			lines:   make(map[id.ID][]sale.Line),
		},
	}
	store.register(r)
	return r
}

func (r *SaleRepo) snapshot() any {
	return saleState{
		headers: maps.Clone(r.state.headers),
		lines:   maps.Clone(r.state.lines),
	}
}

func (r *SaleRepo) restore(state any) {
	r.state = state.(saleState)
}

// holdsNumber reports whether s occupies its (vendor, number) slot.
func holdsNumber(s *sale.Sale) bool {
	return s.Number != nil && s.Status != sale.StatusCancelled && !s.IsArchived()
}

// checkDocument mirrors the partial unique index on (vendor_id, document_number).
func (r *SaleRepo) checkDocument(s *sale.Sale) error {
	if !holdsNumber(s) {
		return nil
	}
	for otherID, other := range r.state.headers {
		if otherID == s.ID || !holdsNumber(&other) {
			continue
		}
		if other.VendorID == s.VendorID && *other.Number == *s.Number {
			return apperror.NewDuplicateDocument(s.VendorID.String(), *s.Number)
		}
	}
	return nil
}

func header(s *sale.Sale) sale.Sale {
	h := *s
	h.Lines = nil
	return h
}

// InsertSale implements sale.Repository.
func (r *SaleRepo) InsertSale(ctx context.Context, s *sale.Sale) error {
	return r.store.write(ctx, func() error {
		if _, exists := r.state.headers[s.ID]; exists {
			return apperror.NewDuplicate("sale", "id", s.ID.String())
		}
		if err := r.checkDocument(s); err != nil {
			return err
		}
		r.state.headers[s.ID] = header(s)
		return nil
	})
}

// InsertLines implements sale.Repository.
func (r *SaleRepo) InsertLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.state.headers[saleID]; !ok {
			return apperror.NewNotFound("sale", saleID.String())
		}
		stored := slices.Clone(r.state.lines[saleID])
		for _, l := range lines {
			l.SaleID = saleID
			// generated column
			l.LineTotal = l.Subtotal.Sub(l.Discount).Add(l.TaxAmount)
			stored = append(stored, l)
		}
		slices.SortFunc(stored, func(a, b sale.Line) int { return cmp.Compare(a.LineNo, b.LineNo) })
		r.state.lines[saleID] = stored
		return nil
	})
}

// FindActiveByDocument implements sale.Repository.
func (r *SaleRepo) FindActiveByDocument(ctx context.Context, vendorID id.ID, number string) (*sale.Sale, error) {
	var out *sale.Sale
	r.store.read(ctx, func() {
		for _, h := range r.state.headers {
			if h.VendorID == vendorID && holdsNumber(&h) && *h.Number == number {
				cp := h
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("sale", number)
	}
	return out, nil
}

// GetByID implements sale.Repository.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	r.store.read(ctx, func() {
		if h, ok := r.state.headers[saleID]; ok {
			out = &h
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return out, nil
}

// GetForUpdate implements sale.Repository.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

// GetLines implements sale.Repository.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	var out []sale.Line
	r.store.read(ctx, func() {
		out = slices.Clone(r.state.lines[saleID])
	})
	if out == nil {
		out = []sale.Line{}
	}
	return out, nil
}

// UpdateHeader implements sale.Repository.
func (r *SaleRepo) UpdateHeader(ctx context.Context, s *sale.Sale) error {
	return r.store.write(ctx, func() error {
		current, ok := r.state.headers[s.ID]
		if !ok {
			return apperror.NewNotFound("sale", s.ID.String())
		}
		if current.Version != s.Version {
			return apperror.NewConcurrentModification("sale", s.ID.String())
		}
		if err := r.checkDocument(s); err != nil {
			return err
		}

		s.Version++
		// only header fields are mutable
		current.PaymentMethod = s.PaymentMethod
		current.Number = s.Number
		current.Notes = s.Notes
		current.Status = s.Status
		current.Lifecycle = s.Lifecycle
		current.UpdatedAt = s.UpdatedAt
		current.Version = s.Version
		r.state.headers[s.ID] = current
		return nil
	})
}

// List implements sale.Repository. Newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{Limit: filter.Limit, Offset: filter.Offset}
	search := strings.ToLower(filter.Search)

	var matched []*sale.Sale
	r.store.read(ctx, func() {
		for _, h := range r.state.headers {
			if !matches(&h, filter, search) {
				continue
			}
			cp := h
			matched = append(matched, &cp)
		}
	})

	slices.SortFunc(matched, func(a, b *sale.Sale) int {
		return cmp.Or(b.Date.Compare(a.Date), id.Compare(b.ID, a.ID))
	})

	result.TotalCount = int64(len(matched))
	result.Items = page(matched, filter.Limit, filter.Offset)
	return result, nil
}

func matches(h *sale.Sale, f sale.ListFilter, search string) bool {
	switch {
	case h.IsArchived() && !f.IncludeArchived:
		return false
	case f.VendorID != nil && h.VendorID != *f.VendorID:
		return false
	case f.CustomerID != nil && h.CustomerID != *f.CustomerID:
		return false
	case f.ZoneID != nil && h.ZoneID != *f.ZoneID:
		return false
	case f.Status != nil && h.Status != *f.Status:
		return false
	case f.DateFrom != nil && h.Date.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && h.Date.After(*f.DateTo):
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(h.DocumentNumber()), search) ||
		(h.Notes != nil && strings.Contains(strings.ToLower(*h.Notes), search))
}
