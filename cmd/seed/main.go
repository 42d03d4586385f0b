// Package main provides a CLI tool for seeding the database with demo data:
// vendors, zones, clients and two stocked products.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/internal/infrastructure/storage/postgres/catalog_repo"
	"salesledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	s := newSeeder(postgres.NewTxManager(pool, postgres.DefaultTxOptions()), log)
	if err := s.run(ctx); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Infow("seeding completed successfully", "created", s.created, "skipped", s.skipped)
}

type seeder struct {
	products *catalog_repo.ProductRepo
	clients  *catalog_repo.ClientRepo
	vendors  *catalog_repo.VendorRepo
	zones    *catalog_repo.ZoneRepo
	log      *logger.Logger

	created, skipped int
}

func newSeeder(txManager *postgres.TxManager, log *logger.Logger) *seeder {
	return &seeder{
		products: catalog_repo.NewProductRepo(txManager),
		clients:  catalog_repo.NewClientRepo(txManager),
		vendors:  catalog_repo.NewVendorRepo(txManager),
		zones:    catalog_repo.NewZoneRepo(txManager),
		log:      log,
	}
}

func (s *seeder) run(ctx context.Context) error {
	for _, v := range []struct{ name, email string }{
		{"Carlos Mendoza", "carlos.mendoza@example.com"},
		{"Lucia Paredes", "lucia.paredes@example.com"},
	} {
		vendor := party.NewVendor(v.name)
		vendor.Email = strPtr(v.email)
		if err := s.create("vendor", v.name, s.vendors.Create(ctx, vendor)); err != nil {
			return err
		}
	}

	for _, name := range []string{"Norte", "Centro", "Sur"} {
		if err := s.create("zone", name, s.zones.Create(ctx, party.NewZone(name))); err != nil {
			return err
		}
	}

	for _, c := range []struct{ name, email string }{
		{"Comercial Andina", "compras@andina.example.com"},
		{"Maria Torres", "maria.torres@example.com"},
	} {
		client := party.NewClient(c.name)
		client.Email = strPtr(c.email)
		if err := s.create("client", c.name, s.clients.Create(ctx, client)); err != nil {
			return err
		}
	}

	for _, p := range []struct {
		sku   string
		price int64
		stock int64
	}{
		{"P1", 10, 100},
		{"P2", 20, 50},
	} {
		prod := product.NewProduct(p.sku, decimal.NewFromInt(p.price), p.stock)
		prod.SKU = strPtr(p.sku)
		if err := s.create("product", p.sku, s.products.Create(ctx, prod)); err != nil {
			return err
		}
	}
	return nil
}

// create treats a unique violation as "already seeded" so the command can be rerun.
func (s *seeder) create(kind, name string, err error) error {
	switch {
	case err == nil:
		s.created++
		s.log.Infow("seeded", "kind", kind, "name", name)
		return nil
	case apperror.IsCode(err, apperror.CodeDuplicate):
		s.skipped++
		s.log.Debugw("already present", "kind", kind, "name", name)
		return nil
	default:
		return fmt.Errorf("seed %s %q: %w", kind, name, err)
	}
}

func strPtr(s string) *string { return &s }
