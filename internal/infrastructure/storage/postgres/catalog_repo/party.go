package catalog_repo

import (
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/infrastructure/storage/postgres"
)

// ClientRepo implements party.ClientRepository.
type ClientRepo struct {
	*BaseCatalogRepo[party.Client, *party.Client]
}

// NewClientRepo creates a new Client repository.
func NewClientRepo(txManager *postgres.TxManager) *ClientRepo {
	return &ClientRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[party.Client](txManager, "clients", "client").
			WithUnique(postgres.ConstraintClientEmail, "email"),
	}
}

// VendorRepo implements party.VendorRepository.
type VendorRepo struct {
	*BaseCatalogRepo[party.Vendor, *party.Vendor]
}

// NewVendorRepo creates a new Vendor repository.
func NewVendorRepo(txManager *postgres.TxManager) *VendorRepo {
	return &VendorRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[party.Vendor](txManager, "vendors", "vendor").
			WithUnique(postgres.ConstraintVendorEmail, "email"),
	}
}

// ZoneRepo implements party.ZoneRepository.
type ZoneRepo struct {
	*BaseCatalogRepo[party.Zone, *party.Zone]
}

// NewZoneRepo creates a new Zone repository.
func NewZoneRepo(txManager *postgres.TxManager) *ZoneRepo {
	return &ZoneRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[party.Zone](txManager, "zones", "zone").
			WithUnique(postgres.ConstraintZoneName, "name"),
	}
}

var (
	_ party.ClientRepository = (*ClientRepo)(nil)
	_ party.VendorRepository = (*VendorRepo)(nil)
	_ party.ZoneRepository   = (*ZoneRepo)(nil)
)
