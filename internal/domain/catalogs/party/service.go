package party

import (
	"context"
	"fmt"

	"salesledger/internal/core/id"
	"salesledger/internal/core/tx"
	"salesledger/internal/domain"
)

// Services bundles the party catalog services.
type Services struct {
	Clients *domain.CatalogService[*Client]
	Vendors *domain.CatalogService[*Vendor]
	Zones   *domain.CatalogService[*Zone]
}

// NewServices creates catalog services for all party kinds.
func NewServices(clients ClientRepository, vendors VendorRepository, zones ZoneRepository, txm tx.Manager) *Services {
	return &Services{
		Clients: domain.NewCatalogService(domain.CatalogServiceConfig[*Client]{
			Repo: clients, TxManager: txm, EntityName: string(KindClient),
		}),
		Vendors: domain.NewCatalogService(domain.CatalogServiceConfig[*Vendor]{
			Repo: vendors, TxManager: txm, EntityName: string(KindVendor),
		}),
		Zones: domain.NewCatalogService(domain.CatalogServiceConfig[*Zone]{
			Repo: zones, TxManager: txm, EntityName: string(KindZone),
		}),
	}
}

// Directory answers existence checks across party catalogs.
// Archived parties do not exist; inactive ones do.
type Directory struct {
	clients ClientRepository
	vendors VendorRepository
	zones   ZoneRepository
}

// NewDirectory creates a Directory.
func NewDirectory(clients ClientRepository, vendors VendorRepository, zones ZoneRepository) *Directory {
	return &Directory{clients: clients, vendors: vendors, zones: zones}
}

// Exists reports whether a non-archived party of the given kind exists.
func (d *Directory) Exists(ctx context.Context, kind Kind, partyID id.ID) (bool, error) {
	switch kind {
	case KindClient:
		return d.clients.Exists(ctx, partyID)
	case KindVendor:
		return d.vendors.Exists(ctx, partyID)
	case KindZone:
		return d.zones.Exists(ctx, partyID)
	default:
		return false, fmt.Errorf("unknown party kind %q", kind)
	}
}
