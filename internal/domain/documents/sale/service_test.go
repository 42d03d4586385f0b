package sale_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/apperror"
	appctx "salesledger/internal/core/context"
	"salesledger/internal/core/id"
	"salesledger/internal/core/numerator"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/domain/documents/sale"
	"salesledger/internal/infrastructure/storage/memory"
	pkgnumerator "salesledger/pkg/numerator"
)

var saleDay = time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	products *memory.ProductRepo
	clients  *memory.ClientRepo
	vendors  *memory.VendorRepo
	zones    *memory.ZoneRepo
	sales    *memory.SaleRepo
	outbox   *memory.Outbox
	audit    *memory.AuditLog
	svc      *sale.Service

	customer, vendor, zone id.ID
	p1, p2                 id.ID
}

type fixtureOpt func(*sale.Config, *sale.Deps)

func withConfig(fn func(*sale.Config)) fixtureOpt {
	return func(c *sale.Config, _ *sale.Deps) { fn(c) }
}

func withNumerator(g numerator.Generator) fixtureOpt {
	return func(_ *sale.Config, d *sale.Deps) { d.Numerator = g }
}

func withRepo(wrap func(sale.Repository) sale.Repository) fixtureOpt {
	return func(_ *sale.Config, d *sale.Deps) { d.Repo = wrap(d.Repo) }
}

func withCache(c sale.CacheInvalidator) fixtureOpt {
	return func(_ *sale.Config, d *sale.Deps) { d.Cache = c }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	f := &fixture{
		store:    store,
		products: memory.NewProductRepo(store),
		clients:  memory.NewClientRepo(store),
		vendors:  memory.NewVendorRepo(store),
		zones:    memory.NewZoneRepo(store),
		sales:    memory.NewSaleRepo(store),
		outbox:   memory.NewOutbox(store),
		audit:    memory.NewAuditLog(store),
	}

	c := party.NewClient("Ana")
	v := party.NewVendor("Luis")
	z := party.NewZone("Norte")
	require.NoError(t, f.clients.Create(ctx, c))
	require.NoError(t, f.vendors.Create(ctx, v))
	require.NoError(t, f.zones.Create(ctx, z))
	f.customer, f.vendor, f.zone = c.ID, v.ID, z.ID

	p1 := product.NewProduct("P1", decimal.NewFromInt(10), 100)
	p2 := product.NewProduct("P2", decimal.NewFromInt(20), 50)
	require.NoError(t, f.products.Create(ctx, p1))
	require.NoError(t, f.products.Create(ctx, p2))
	f.p1, f.p2 = p1.ID, p2.ID

	cfg := sale.DefaultConfig()
	cfg.Now = func() time.Time { return saleDay }
	deps := sale.Deps{
		Repo:      f.sales,
		Products:  f.products,
		Parties:   party.NewDirectory(f.clients, f.vendors, f.zones),
		TxManager: store,
		Numerator: pkgnumerator.New(nil),
		Events:    f.outbox,
		Audit:     f.audit,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	f.svc = sale.NewService(deps, cfg)
	return f
}

func (f *fixture) request(lines ...sale.LineRequest) sale.RegisterRequest {
	return sale.RegisterRequest{
		CustomerID:    f.customer,
		VendorID:      f.vendor,
		ZoneID:        f.zone,
		PaymentMethod: sale.PaymentCash,
		Lines:         lines,
	}
}

func (f *fixture) addProduct(t *testing.T, name, price string, stock int64) id.ID {
	t.Helper()
	p := product.NewProduct(name, decimal.RequireFromString(price), stock)
	require.NoError(t, f.products.Create(context.Background(), p))
	return p.ID
}

func (f *fixture) stock(t *testing.T, productID id.ID) int64 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func line(productID id.ID, qty int64, price string) sale.LineRequest {
	return sale.LineRequest{ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func pct(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func money(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func requireCode(t *testing.T, err error, code string) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestRegisterSale_ComputesTotalsFromCatalogPrices(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "seller-1"})

	l1 := line(f.p1, 3, "10.00")
	l1.Discount = decimal.NewFromInt(5)
	l2 := line(f.p2, 2, "20.00")
	l2.TaxPercent = pct("0")
	l2.Unit = "BOX"

	s, err := f.svc.RegisterSale(ctx, f.request(l1, l2))
	require.NoError(t, err)

	assert.Equal(t, sale.StatusConfirmed, s.Status)
	assert.Equal(t, "USD", s.Currency)
	money(t, "1", s.ExchangeRate)
	assert.Equal(t, "seller-1", s.CreatedBy)
	assert.Equal(t, saleDay, s.Date)
	assert.Regexp(t, `^V-20250914-\d{4}$`, s.DocumentNumber())

	require.Len(t, s.Lines, 2)
	first := s.Lines[0]
	assert.Equal(t, 1, first.LineNo)
	assert.Equal(t, f.p1, first.ProductID)
	money(t, "30", first.Subtotal)
	money(t, "5", first.Discount)
	money(t, "15", first.TaxPercent)
	money(t, "3.75", first.TaxAmount)
	money(t, "28.75", first.LineTotal)
	assert.Equal(t, "UNIT", first.Unit)

	second := s.Lines[1]
	assert.Equal(t, 2, second.LineNo)
	money(t, "40", second.LineTotal)
	assert.Equal(t, "BOX", second.Unit)

	money(t, "68.75", s.TotalAmount)
	money(t, "3.75", s.TotalTax)
	money(t, "5", s.TotalDiscount)

	assert.Equal(t, int64(97), f.stock(t, f.p1))
	assert.Equal(t, int64(48), f.stock(t, f.p2))

	stored, err := f.svc.GetSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.DocumentNumber(), stored.DocumentNumber())
	require.Len(t, stored.Lines, 2)
	money(t, "28.75", stored.Lines[0].LineTotal)

	events := f.outbox.Events(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, sale.EventSaleRegistered, events[0].EventType)
	assert.Equal(t, s.ID, events[0].AggregateID)

	history, err := f.svc.History(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "seller-1", history[0].Actor)
}

func TestRegisterSale_UsesCatalogPriceNotSubmittedPrice(t *testing.T) {
	f := newFixture(t)

	// within tolerance: stored price is the catalog one
	s, err := f.svc.RegisterSale(context.Background(), f.request(line(f.p1, 1, "10.01")))
	require.NoError(t, err)
	money(t, "10", s.Lines[0].UnitPrice)
	money(t, "11.5", s.TotalAmount)
}

func TestRegisterSale_TaxRoundsHalfAwayFromZero(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Odd", "33.33", 5)

	s, err := f.svc.RegisterSale(context.Background(), f.request(line(p, 1, "33.33")))
	require.NoError(t, err)
	money(t, "5", s.Lines[0].TaxAmount)
	money(t, "38.33", s.TotalAmount)
}

func TestRegisterSale_DiscountIsClampedToSubtotal(t *testing.T) {
	f := newFixture(t)

	l := line(f.p2, 5, "20")
	l.Discount = decimal.NewFromInt(150)

	s, err := f.svc.RegisterSale(context.Background(), f.request(l))
	require.NoError(t, err)
	money(t, "100", s.Lines[0].Discount)
	money(t, "0", s.Lines[0].TaxAmount)
	money(t, "0", s.Lines[0].LineTotal)
	money(t, "0", s.TotalAmount)
	money(t, "100", s.TotalDiscount)
}

func TestRegisterSale_FailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterSale(ctx, f.request(line(f.p1, 10, "10"), line(f.p2, 51, "20")))

	appErr := requireCode(t, err, apperror.CodeInsufficientStock)
	assert.Equal(t, f.p2.String(), appErr.Details["product_id"])
	assert.Equal(t, 2, appErr.Details["line"])
	assert.Equal(t, int64(50), appErr.Details["available"])
	assert.Equal(t, int64(51), appErr.Details["requested"])

	// the first line's decrement was rolled back
	assert.Equal(t, int64(100), f.stock(t, f.p1))
	assert.Equal(t, int64(50), f.stock(t, f.p2))

	list, err := f.svc.ListSales(ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
	assert.Empty(t, f.outbox.Events(ctx))
}

func TestRegisterSale_RepeatedProductSharesStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterSale(context.Background(), f.request(line(f.p1, 60, "10"), line(f.p1, 50, "10")))

	appErr := requireCode(t, err, apperror.CodeInsufficientStock)
	assert.Equal(t, int64(40), appErr.Details["available"])
	assert.Equal(t, 2, appErr.Details["line"])
	assert.Equal(t, int64(100), f.stock(t, f.p1))
}

func TestRegisterSale_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := product.NewProduct("Old", decimal.NewFromInt(5), 10)
	inactive.Active = false
	require.NoError(t, f.products.Create(ctx, inactive))

	archived := product.NewProduct("Gone", decimal.NewFromInt(5), 10)
	archived.Archive()
	require.NoError(t, f.products.Create(ctx, archived))

	tests := []struct {
		name  string
		req   func() sale.RegisterRequest
		code  string
		check func(t *testing.T, e *apperror.AppError)
	}{
		{
			name: "empty lines",
			req:  func() sale.RegisterRequest { return f.request() },
			code: apperror.CodeEmptyLineSet,
		},
		{
			name: "zero quantity",
			req:  func() sale.RegisterRequest { return f.request(line(f.p1, 0, "10")) },
			code: apperror.CodeValidation,
			check: func(t *testing.T, e *apperror.AppError) {
				assert.Equal(t, 1, e.Details["line"])
			},
		},
		{
			name: "unknown payment method",
			req: func() sale.RegisterRequest {
				r := f.request(line(f.p1, 1, "10"))
				r.PaymentMethod = "BARTER"
				return r
			},
			code: apperror.CodeValidation,
		},
		{
			name: "stale price",
			req:  func() sale.RegisterRequest { return f.request(line(f.p1, 1, "10"), line(f.p2, 1, "19.98")) },
			code: apperror.CodePriceChanged,
			check: func(t *testing.T, e *apperror.AppError) {
				assert.Equal(t, "20.00", e.Details["current_price"])
				assert.Equal(t, "19.98", e.Details["submitted_price"])
				assert.Equal(t, 2, e.Details["line"])
			},
		},
		{
			name: "tax above 100",
			req: func() sale.RegisterRequest {
				l := line(f.p1, 1, "10")
				l.TaxPercent = pct("100.5")
				return f.request(l)
			},
			code: apperror.CodeInvalidTaxPercentage,
		},
		{
			name: "tax with three decimals",
			req: func() sale.RegisterRequest {
				l := line(f.p1, 1, "10")
				l.TaxPercent = pct("12.345")
				return f.request(l)
			},
			code: apperror.CodeInvalidTaxPercentage,
		},
		{
			name: "negative tax",
			req: func() sale.RegisterRequest {
				l := line(f.p1, 1, "10")
				l.TaxPercent = pct("-1")
				return f.request(l)
			},
			code: apperror.CodeInvalidTaxPercentage,
		},
		{
			name: "unknown product",
			req:  func() sale.RegisterRequest { return f.request(line(id.New(), 1, "10")) },
			code: apperror.CodeNotFound,
		},
		{
			name: "archived product",
			req:  func() sale.RegisterRequest { return f.request(line(archived.ID, 1, "5")) },
			code: apperror.CodeNotFound,
		},
		{
			name: "inactive product",
			req:  func() sale.RegisterRequest { return f.request(line(inactive.ID, 1, "5")) },
			code: apperror.CodeProductInactive,
		},
		{
			name: "unknown customer",
			req: func() sale.RegisterRequest {
				r := f.request(line(f.p1, 1, "10"))
				r.CustomerID = id.New()
				return r
			},
			code: apperror.CodeNotFound,
			check: func(t *testing.T, e *apperror.AppError) {
				assert.Equal(t, "client", e.Details["entity"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterSale(ctx, tt.req())
			appErr := requireCode(t, err, tt.code)
			if tt.check != nil {
				tt.check(t, appErr)
			}
		})
	}

	assert.Equal(t, int64(100), f.stock(t, f.p1))
	assert.Equal(t, int64(50), f.stock(t, f.p2))
	assert.Empty(t, f.outbox.Events(ctx))
}

func TestRegisterSale_ArchivedVendorDoesNotExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.vendors.GetByID(ctx, f.vendor)
	require.NoError(t, err)
	v.Archive()
	require.NoError(t, f.vendors.Update(ctx, v))

	_, err = f.svc.RegisterSale(ctx, f.request(line(f.p1, 1, "10")))
	appErr := requireCode(t, err, apperror.CodeNotFound)
	assert.Equal(t, "vendor", appErr.Details["entity"])
}

func TestRegisterSale_DocumentNumberUniquePerVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(line(f.p1, 1, "10"))
	req.DocumentNumber = "F-001"

	first, err := f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.RegisterSale(ctx, req)
	requireCode(t, err, apperror.CodeDuplicateDocument)
	assert.Equal(t, int64(99), f.stock(t, f.p1))

	// another vendor may use the same number
	other := party.NewVendor("Marta")
	require.NoError(t, f.vendors.Create(ctx, other))
	req.VendorID = other.ID
	_, err = f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	// a cancelled sale frees its number
	_, err = f.svc.CancelSale(ctx, first.ID)
	require.NoError(t, err)
	req.VendorID = f.vendor
	_, err = f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)
}

// staleLookupRepo never sees an existing document number, so only the
// storage constraint can reject a duplicate.
type staleLookupRepo struct {
	sale.Repository
}

func (staleLookupRepo) FindActiveByDocument(_ context.Context, _ id.ID, number string) (*sale.Sale, error) {
	return nil, apperror.NewNotFound("sale", number)
}

func TestRegisterSale_DuplicateCaughtAtInsert(t *testing.T) {
	f := newFixture(t, withRepo(func(r sale.Repository) sale.Repository {
		return staleLookupRepo{Repository: r}
	}))
	ctx := context.Background()

	req := f.request(line(f.p1, 1, "10"))
	req.DocumentNumber = "X-1"
	_, err := f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	req.Lines = []sale.LineRequest{line(f.p1, 5, "10"), line(f.p2, 2, "20")}
	_, err = f.svc.RegisterSale(ctx, req)
	requireCode(t, err, apperror.CodeDuplicateDocument)

	assert.Equal(t, int64(99), f.stock(t, f.p1))
	assert.Equal(t, int64(50), f.stock(t, f.p2))

	list, err := f.svc.ListSales(ctx, sale.ListFilter{VendorID: &f.vendor})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)
}

func TestRegisterSale_GenerationExhausted(t *testing.T) {
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return "V-20250914-0007", nil
		},
	}
	f := newFixture(t, withNumerator(gen))
	ctx := context.Background()

	first, err := f.svc.RegisterSale(ctx, f.request(line(f.p1, 1, "10")))
	require.NoError(t, err)
	assert.Equal(t, "V-20250914-0007", first.DocumentNumber())

	_, err = f.svc.RegisterSale(ctx, f.request(line(f.p1, 1, "10")))
	appErr := requireCode(t, err, apperror.CodeGenerationExhausted)
	assert.Equal(t, 10, appErr.Details["attempts"])
	assert.Equal(t, int64(11), gen.Calls())
	assert.Equal(t, int64(99), f.stock(t, f.p1))
}

func TestRegisterSale_GeneratorErrorRollsBack(t *testing.T) {
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(context.Context, numerator.Config, *numerator.Options, time.Time) (string, error) {
			return "", errors.New("sequence unavailable")
		},
	}
	f := newFixture(t, withNumerator(gen))

	_, err := f.svc.RegisterSale(context.Background(), f.request(line(f.p1, 4, "10")))
	require.Error(t, err)
	assert.False(t, apperror.IsAppError(err))
	assert.Equal(t, int64(100), f.stock(t, f.p1))
}

func TestRegisterSale_ConcurrentBuyersNeverOversell(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Scarce", "7.50", 10)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegisterSale(context.Background(), f.request(line(p, 3, "7.50")))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes++
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	assert.Equal(t, int64(1), f.stock(t, p))
	for _, err := range failures {
		assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock), "unexpected error %v", err)
	}
}

func TestRegisterSale_ConcurrentDocumentNumbers(t *testing.T) {
	f := newFixture(t)

	const writers = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := f.request(line(f.p1, 1, "10"))
			req.DocumentNumber = "F-777"
			_, err := f.svc.RegisterSale(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.IsCode(err, apperror.CodeDuplicateDocument):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, duplicates)
	assert.Equal(t, int64(99), f.stock(t, f.p1))
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) InvalidateCache(ctx context.Context, ids ...id.ID) {
	m.Called(ctx, ids)
}

func TestRegisterSale_InvalidatesProductCache(t *testing.T) {
	cache := &mockCache{}
	f := newFixture(t, withCache(cache))
	cache.On("InvalidateCache", mock.Anything, []id.ID{f.p1, f.p2, f.p1}).Return().Once()

	_, err := f.svc.RegisterSale(context.Background(), f.request(line(f.p1, 1, "10"), line(f.p2, 1, "20"), line(f.p1, 1, "10")))
	require.NoError(t, err)

	cache.AssertExpectations(t)
}

func TestCancelSale_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.RegisterSale(ctx, f.request(line(f.p1, 5, "10")))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatusCancelled, cancelled.Status)
	require.Len(t, cancelled.Lines, 1)

	again, err := f.svc.CancelSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatusCancelled, again.Status)
	assert.Equal(t, cancelled.Version, again.Version)

	// stock is not restored by default
	assert.Equal(t, int64(95), f.stock(t, f.p1))

	var cancels int
	for _, e := range f.outbox.Events(ctx) {
		if e.EventType == sale.EventSaleCancelled {
			cancels++
		}
	}
	assert.Equal(t, 1, cancels)

	history, err := f.svc.History(ctx, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, []string{"create", "cancel"}, string(history[0].Action))
}

func TestCancelSale_RestockWhenEnabled(t *testing.T) {
	f := newFixture(t, withConfig(func(c *sale.Config) { c.RestockOnCancel = true }))
	ctx := context.Background()

	s, err := f.svc.RegisterSale(ctx, f.request(line(f.p2, 4, "20"), line(f.p1, 5, "10"), line(f.p2, 1, "20")))
	require.NoError(t, err)
	assert.Equal(t, int64(45), f.stock(t, f.p2))

	_, err = f.svc.CancelSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.stock(t, f.p1))
	assert.Equal(t, int64(50), f.stock(t, f.p2))

	// a second cancel must not restock twice
	_, err = f.svc.CancelSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), f.stock(t, f.p2))
}

func TestCancelSale_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CancelSale(context.Background(), id.New())
	requireCode(t, err, apperror.CodeNotFound)
}

func TestUpdateSaleHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	taken := f.request(line(f.p1, 1, "10"))
	taken.DocumentNumber = "F-100"
	_, err := f.svc.RegisterSale(ctx, taken)
	require.NoError(t, err)

	s, err := f.svc.RegisterSale(ctx, f.request(line(f.p1, 2, "10")))
	require.NoError(t, err)

	card := sale.PaymentCard
	notes := "  deliver on monday "
	updated, err := f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{
		PaymentMethod: &card,
		Notes:         &notes,
		Version:       s.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, sale.PaymentCard, updated.PaymentMethod)
	assert.Equal(t, "deliver on monday", *updated.Notes)
	assert.Equal(t, s.Version+1, updated.Version)
	money(t, s.TotalAmount.String(), updated.TotalAmount)
	assert.Len(t, updated.Lines, 1)

	t.Run("stale version", func(t *testing.T) {
		_, err := f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{Notes: &notes, Version: s.Version})
		requireCode(t, err, apperror.CodeConcurrentModification)
	})

	t.Run("number taken", func(t *testing.T) {
		number := "F-100"
		_, err := f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{DocumentNumber: &number})
		requireCode(t, err, apperror.CodeDuplicateDocument)
	})

	t.Run("payment method is normalized", func(t *testing.T) {
		lower := sale.PaymentMethod(" transfer ")
		got, err := f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{PaymentMethod: &lower})
		require.NoError(t, err)
		assert.Equal(t, sale.PaymentTransfer, got.PaymentMethod)
		assert.Equal(t, sale.PaymentMethod(" transfer "), lower)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		bogus := sale.PaymentMethod("barter")
		_, err := f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{PaymentMethod: &bogus})
		requireCode(t, err, apperror.CodeValidation)
	})

	t.Run("cancelled is read-only", func(t *testing.T) {
		_, err := f.svc.CancelSale(ctx, s.ID)
		require.NoError(t, err)
		_, err = f.svc.UpdateSaleHeader(ctx, s.ID, sale.HeaderPatch{Notes: &notes})
		requireCode(t, err, apperror.CodeSaleCancelled)
	})
}

func TestArchiveSale_HidesSaleAndFreesNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(line(f.p1, 1, "10"))
	req.DocumentNumber = "F-200"
	s, err := f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.svc.ArchiveSale(ctx, s.ID))

	_, err = f.svc.GetSale(ctx, s.ID)
	requireCode(t, err, apperror.CodeNotFound)
	requireCode(t, f.svc.ArchiveSale(ctx, s.ID), apperror.CodeNotFound)

	list, err := f.svc.ListSales(ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	list, err = f.svc.ListSales(ctx, sale.ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)

	_, err = f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)
}

func TestListSales_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := party.NewVendor("Marta")
	require.NoError(t, f.vendors.Create(ctx, other))

	_, err := f.svc.RegisterSale(ctx, f.request(line(f.p1, 1, "10")))
	require.NoError(t, err)
	req := f.request(line(f.p1, 1, "10"))
	req.VendorID = other.ID
	req.Notes = "wholesale order"
	_, err = f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	byVendor, err := f.svc.ListSales(ctx, sale.ListFilter{VendorID: &other.ID})
	require.NoError(t, err)
	require.Len(t, byVendor.Items, 1)
	assert.Equal(t, other.ID, byVendor.Items[0].VendorID)

	bySearch, err := f.svc.ListSales(ctx, sale.ListFilter{Search: "WHOLESALE"})
	require.NoError(t, err)
	assert.Len(t, bySearch.Items, 1)

	paged, err := f.svc.ListSales(ctx, sale.ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), paged.TotalCount)
	assert.Len(t, paged.Items, 1)
}

func TestRenderReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(line(f.p1, 2, "10"))
	req.Notes = "thank you"
	s, err := f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	pdf, err := f.svc.RenderReceipt(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

type namedCatalog map[id.ID]string

func (c namedCatalog) Get(_ context.Context, productID id.ID) (*product.Product, error) {
	name, ok := c[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return product.NewProduct(name, decimal.Zero, 0), nil
}

func TestRenderReceipt_NonLatinText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// rebuilt with a catalog now that product ids are known
	f.svc = sale.NewService(sale.Deps{
		Repo:      f.sales,
		Products:  f.products,
		Parties:   party.NewDirectory(f.clients, f.vendors, f.zones),
		TxManager: f.store,
		Numerator: pkgnumerator.New(nil),
		Events:    f.outbox,
		Audit:     f.audit,
		Catalog:   namedCatalog{f.p1: "Ñandú café €", f.p2: "Кофе"},
	}, sale.DefaultConfig())

	req := f.request(line(f.p1, 1, "10"), line(f.p2, 1, "20"))
	req.DocumentNumber = "Nº-7"
	req.Notes = "entregar mañana"
	s, err := f.svc.RegisterSale(ctx, req)
	require.NoError(t, err)

	pdf, err := f.svc.RenderReceipt(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
