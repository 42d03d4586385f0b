package party

import (
	"salesledger/internal/domain"
)

// ClientRepository defines the interface for Client persistence.
type ClientRepository interface {
	domain.CatalogRepository[*Client]
}

// VendorRepository defines the interface for Vendor persistence.
type VendorRepository interface {
	domain.CatalogRepository[*Vendor]
}

// ZoneRepository defines the interface for Zone persistence.
type ZoneRepository interface {
	domain.CatalogRepository[*Zone]
}
