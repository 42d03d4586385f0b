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
	"salesledger/internal/domain/catalogs/party"
)

// uniqueKey extracts a value that must be unique among non-archived rows.
// An empty value is not checked.
type uniqueKey[P any] struct {
	field string
	key   func(P) string
}

// CatalogRepo is a generic in-memory catalog table.
type CatalogRepo[E any, P interface {
	*E
	domain.CatalogEntity
}] struct {
	store  *Store
	entity string
	rows   map[id.ID]E
	unique []uniqueKey[P]
}

// NewCatalogRepo creates a catalog table registered with store.
func NewCatalogRepo[E any, P interface {
	*E
	domain.CatalogEntity
}](store *Store, entity string) *CatalogRepo[E, P] {
	r := &CatalogRepo[E, P]{
		store:  store,
		entity: entity,
		rows:   make(map[id.ID]E),
	}
	store.register(r)
	return r
}

// Unique adds a case-insensitive uniqueness rule.
func (r *CatalogRepo[E, P]) Unique(field string, key func(P) string) *CatalogRepo[E, P] {
	r.unique = append(r.unique, uniqueKey[P]{field: field, key: key})
	return r
}

func (r *CatalogRepo[E, P]) snapshot() any {
	return maps.Clone(r.rows)
}

func (r *CatalogRepo[E, P]) restore(state any) {
	r.rows = state.(map[id.ID]E)
}

func (r *CatalogRepo[E, P]) copyOf(e E) P {
	cp := e
	return P(&cp)
}

// checkUnique must be called with the lock held.
func (r *CatalogRepo[E, P]) checkUnique(e P) error {
	self := e.CatalogBase()
	if self.IsArchived() {
		return nil
	}
	for _, u := range r.unique {
		value := strings.ToLower(strings.TrimSpace(u.key(e)))
		if value == "" {
			continue
		}
		for rowID, row := range r.rows {
			other := P(&row)
			if rowID == self.ID || other.CatalogBase().IsArchived() {
				continue
			}
			if strings.ToLower(strings.TrimSpace(u.key(other))) == value {
				return apperror.NewDuplicate(r.entity, u.field, u.key(e))
			}
		}
	}
	return nil
}

// Create implements domain.CatalogRepository.
func (r *CatalogRepo[E, P]) Create(ctx context.Context, e P) error {
	return r.store.write(ctx, func() error {
		if _, exists := r.rows[e.CatalogBase().ID]; exists {
			return apperror.NewDuplicate(r.entity, "id", e.CatalogBase().ID.String())
		}
		if err := r.checkUnique(e); err != nil {
			return err
		}
		r.rows[e.CatalogBase().ID] = *e
		return nil
	})
}

// GetByID implements domain.CatalogRepository.
func (r *CatalogRepo[E, P]) GetByID(ctx context.Context, entityID id.ID) (P, error) {
	var (
		out P
		err error
	)
	r.store.read(ctx, func() {
		row, ok := r.rows[entityID]
		if !ok {
			err = apperror.NewNotFound(r.entity, entityID.String())
			return
		}
		out = r.copyOf(row)
	})
	return out, err
}

// Update implements domain.CatalogRepository with an optimistic version check.
func (r *CatalogRepo[E, P]) Update(ctx context.Context, e P) error {
	return r.store.write(ctx, func() error {
		base := e.CatalogBase()
		current, ok := r.rows[base.ID]
		if !ok {
			return apperror.NewNotFound(r.entity, base.ID.String())
		}
		if P(&current).CatalogBase().Version != base.Version {
			return apperror.NewConcurrentModification(r.entity, base.ID.String())
		}
		if err := r.checkUnique(e); err != nil {
			return err
		}
		base.Version++
		r.rows[base.ID] = *e
		return nil
	})
}

// List implements domain.CatalogRepository. Ordered by name.
func (r *CatalogRepo[E, P]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[P], error) {
	result := domain.ListResult[P]{Limit: filter.Limit, Offset: filter.Offset}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []P
	r.store.read(ctx, func() {
		for _, row := range r.rows {
			p := r.copyOf(row)
			c := p.CatalogBase()
			if c.IsArchived() && !filter.IncludeArchived {
				continue
			}
			if filter.Active != nil && c.Active != *filter.Active {
				continue
			}
			if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, c.ID) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
				continue
			}
			matched = append(matched, p)
		}
	})

	slices.SortFunc(matched, func(a, b P) int {
		return cmp.Or(
			cmp.Compare(a.CatalogBase().Name, b.CatalogBase().Name),
			id.Compare(a.CatalogBase().ID, b.CatalogBase().ID),
		)
	})

	result.TotalCount = int64(len(matched))
	result.Items = page(matched, filter.Limit, filter.Offset)
	return result, nil
}

// Exists implements domain.CatalogRepository.
func (r *CatalogRepo[E, P]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	var ok bool
	r.store.read(ctx, func() {
		row, found := r.rows[entityID]
		ok = found && !P(&row).CatalogBase().IsArchived()
	})
	return ok, nil
}

// mutate applies fn to a stored row under the lock.
func (r *CatalogRepo[E, P]) mutate(ctx context.Context, entityID id.ID, fn func(P) error) error {
	return r.store.write(ctx, func() error {
		row, ok := r.rows[entityID]
		if !ok {
			return apperror.NewNotFound(r.entity, entityID.String())
		}
		p := P(&row)
		if err := fn(p); err != nil {
			return err
		}
		r.rows[entityID] = row
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- Party tables ---

// ClientRepo stores clients; email is unique.
type ClientRepo = CatalogRepo[party.Client, *party.Client]

// VendorRepo stores vendors; email is unique.
type VendorRepo = CatalogRepo[party.Vendor, *party.Vendor]

// ZoneRepo stores zones; name is unique.
type ZoneRepo = CatalogRepo[party.Zone, *party.Zone]

// NewClientRepo creates the clients table.
func NewClientRepo(store *Store) *ClientRepo {
	return NewCatalogRepo[party.Client](store, string(party.KindClient)).
		Unique("email", func(c *party.Client) string { return deref(c.Email) })
}

// NewVendorRepo creates the vendors table.
func NewVendorRepo(store *Store) *VendorRepo {
	return NewCatalogRepo[party.Vendor](store, string(party.KindVendor)).
		Unique("email", func(v *party.Vendor) string { return deref(v.Email) })
}

// NewZoneRepo creates the zones table.
func NewZoneRepo(store *Store) *ZoneRepo {
	return NewCatalogRepo[party.Zone](store, string(party.KindZone)).
		Unique("name", func(z *party.Zone) string { return z.Name })
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
