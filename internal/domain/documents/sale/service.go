package sale

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salesledger/internal/core/apperror"
	appctx "salesledger/internal/core/context"
	"salesledger/internal/core/id"
	"salesledger/internal/core/numerator"
	"salesledger/internal/core/tx"
	"salesledger/internal/core/types"
	"salesledger/internal/domain"
	"salesledger/internal/domain/audit"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/pkg/logger"
)

const (
	aggregateType = "Sale"

	EventSaleRegistered    = "SaleRegistered"
	EventSaleCancelled     = "SaleCancelled"
	EventSaleHeaderUpdated = "SaleHeaderUpdated"
	EventSaleArchived      = "SaleArchived"
)

// Deps are the collaborators of Service. Events, Audit and Cache are optional.
type Deps struct {
	Repo      Repository
	Products  ProductStore
	Parties   PartyDirectory
	TxManager tx.Manager
	Numerator numerator.Generator
	Events    domain.EventPublisher
	Audit     audit.Logger
	Cache     CacheInvalidator

	// Catalog resolves product names on receipts
	Catalog ProductLookup
}

// Service provides business operations for sales.
type Service struct {
	repo      Repository
	products  ProductStore
	parties   PartyDirectory
	txManager tx.Manager
	numerator numerator.Generator
	events    domain.EventPublisher
	audit     audit.Logger
	cache     CacheInvalidator
	catalog   ProductLookup
	cfg       Config
	metrics   *metrics
}

// NewService creates a new sale service.
func NewService(deps Deps, cfg Config) *Service {
	s := &Service{
		repo:      deps.Repo,
		products:  deps.Products,
		parties:   deps.Parties,
		txManager: deps.TxManager,
		numerator: deps.Numerator,
		events:    deps.Events,
		audit:     deps.Audit,
		cache:     deps.Cache,
		catalog:   deps.Catalog,
		cfg:       cfg.withDefaults(),
		metrics:   newMetrics(),
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.cache == nil {
		s.cache = nopInvalidator{}
	}
	return s
}

// Config returns the effective engine configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// RegisterSale validates the request, locks and decrements stock for every
// line, computes totals from catalog prices, and stores the confirmed sale
// with its lines. Everything happens in one transaction.
func (s *Service) RegisterSale(ctx context.Context, req RegisterRequest) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sale.Register", trace.WithAttributes(
		attribute.String("sale.vendor_id", req.VendorID.String()),
		attribute.Int("sale.lines", len(req.Lines)),
	))
	defer span.End()

	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, s.reject(ctx, span, req, err)
	}

	sale := newSale(req, s.cfg, appctx.Actor(ctx), s.cfg.Now())

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Fresh state on every attempt
		sale.Lines = nil
		sale.TotalAmount, sale.TotalTax, sale.TotalDiscount = types.Zero(), types.Zero(), types.Zero()
		sale.SetNumber(req.DocumentNumber)

		if err := s.ensureParties(ctx, req); err != nil {
			return err
		}

		if number := sale.DocumentNumber(); number != "" {
			if err := s.ensureNumberFree(ctx, sale.VendorID, number, id.Nil()); err != nil {
				return err
			}
		}

		if err := s.applyLines(ctx, sale, req.Lines); err != nil {
			return err
		}
		sale.roundTotals()

		if sale.Number == nil {
			number, err := s.generateNumber(ctx, sale)
			if err != nil {
				return err
			}
			sale.SetNumber(number)
		}

		if err := s.repo.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		if err := s.repo.InsertLines(ctx, sale.ID, sale.Lines); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   sale.ID,
			EventType:     EventSaleRegistered,
			Payload:       registeredPayload(sale),
		}); err != nil {
			return fmt.Errorf("publish %s: %w", EventSaleRegistered, err)
		}

		if err := s.audit.LogChange(ctx, aggregateType, sale.ID, audit.ActionCreate, sale.snapshot()); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, req, err)
	}

	s.cache.InvalidateCache(ctx, req.productIDs()...)
	s.metrics.recordRegistered(ctx, sale)
	span.SetAttributes(attribute.String("sale.id", sale.ID.String()))

	logger.Info(ctx, "sale registered",
		"sale_id", sale.ID,
		"document_number", sale.DocumentNumber(),
		"vendor_id", sale.VendorID,
		"lines", len(sale.Lines),
		"total_amount", sale.TotalAmount.StringFixed(2),
	)
	return sale, nil
}

// ensureParties checks customer, vendor and zone exist.
func (s *Service) ensureParties(ctx context.Context, req RegisterRequest) error {
	refs := []struct {
		kind party.Kind
		id   id.ID
	}{
		{party.KindClient, req.CustomerID},
		{party.KindVendor, req.VendorID},
		{party.KindZone, req.ZoneID},
	}
	for _, ref := range refs {
		ok, err := s.parties.Exists(ctx, ref.kind, ref.id)
		if err != nil {
			return fmt.Errorf("check %s: %w", ref.kind, err)
		}
		if !ok {
			return apperror.NewNotFound(string(ref.kind), ref.id.String())
		}
	}
	return nil
}

// ensureNumberFree is the advisory duplicate check; the storage constraint
// on insert is the final guard.
func (s *Service) ensureNumberFree(ctx context.Context, vendorID id.ID, number string, self id.ID) error {
	taken, err := s.numberTaken(ctx, vendorID, number, self)
	if err != nil {
		return err
	}
	if taken {
		return apperror.NewDuplicateDocument(vendorID.String(), number)
	}
	return nil
}

func (s *Service) numberTaken(ctx context.Context, vendorID id.ID, number string, self id.ID) (bool, error) {
	existing, err := s.repo.FindActiveByDocument(ctx, vendorID, number)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("find by document: %w", err)
	}
	return existing.ID != self, nil
}

// applyLines locks every referenced product in canonical order, then
// validates, prices and decrements stock line by line in submission order.
func (s *Service) applyLines(ctx context.Context, sale *Sale, lines []LineRequest) error {
	ids := make([]id.ID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	locked := make(map[id.ID]*product.Product, len(ids))
	for _, productID := range id.SortedUnique(ids) {
		p, err := s.products.LockProduct(ctx, productID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("product", productID.String())
			}
			return fmt.Errorf("lock product %s: %w", productID, err)
		}
		if p.IsArchived() {
			return apperror.NewNotFound("product", productID.String())
		}
		locked[productID] = p
	}

	// taken tracks quantities claimed by earlier lines of this sale
	taken := make(map[id.ID]int64, len(locked))

	for i, req := range lines {
		lineNo := i + 1
		p := locked[req.ProductID]

		if !p.Active {
			return apperror.NewBusinessRule(apperror.CodeProductInactive, "Product is not available for sale").
				WithDetail("product_id", p.ID.String()).
				WithDetail("line", lineNo)
		}

		available := p.Stock - taken[p.ID]
		if req.Quantity > available {
			return apperror.NewInsufficientStock(p.ID.String(), lineNo, available, req.Quantity)
		}

		if !types.WithinTolerance(req.UnitPrice, p.Price, s.cfg.PriceTolerance) {
			return apperror.NewPriceChanged(p.ID.String(), lineNo, p.Price.StringFixed(2), req.UnitPrice.StringFixed(2))
		}

		pct := s.cfg.DefaultTaxPercent
		if req.TaxPercent != nil {
			pct = *req.TaxPercent
		}
		if !types.ValidPercent(pct) {
			return apperror.NewInvalidTaxPercentage(lineNo, pct.String())
		}

		subtotal := types.RoundMoney(types.MulQty(p.Price, req.Quantity))
		discount := types.RoundMoney(types.MinMoney(req.Discount, subtotal))
		tax := types.PercentOf(subtotal.Sub(discount), pct)

		unit := req.Unit
		if unit == "" {
			unit = s.cfg.DefaultUnit
		}

		sale.addLine(Line{
			ID:         id.New(),
			ProductID:  p.ID,
			Quantity:   req.Quantity,
			UnitPrice:  p.Price,
			Subtotal:   subtotal,
			Discount:   discount,
			TaxPercent: pct,
			TaxAmount:  tax,
			Unit:       unit,
		})

		if err := s.products.DecrementStock(ctx, p.ID, req.Quantity); err != nil {
			return fmt.Errorf("decrement stock of %s: %w", p.ID, err)
		}
		taken[p.ID] += req.Quantity
	}

	return nil
}

// generateNumber draws candidates until one is free for the vendor.
func (s *Service) generateNumber(ctx context.Context, sale *Sale) (string, error) {
	cfg := numerator.DefaultConfig(s.cfg.NumberPrefix)
	cfg.Scope = sale.VendorID.String()
	opts := &numerator.Options{Strategy: s.cfg.NumberStrategy}

	for attempt := 1; attempt <= s.cfg.NumberMaxAttempts; attempt++ {
		number, err := s.numerator.GetNextNumber(ctx, cfg, opts, sale.Date)
		if err != nil {
			return "", fmt.Errorf("generate number: %w", err)
		}
		taken, err := s.numberTaken(ctx, sale.VendorID, number, id.Nil())
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
		logger.Debug(ctx, "generated document number taken, retrying", "number", number, "attempt", attempt)
	}

	return "", apperror.NewGenerationExhausted(sale.VendorID.String(), s.cfg.NumberMaxAttempts)
}

// reject records a failed registration and returns err unchanged.
func (s *Service) reject(ctx context.Context, span trace.Span, req RegisterRequest, err error) error {
	code := apperror.CodeOf(err)
	s.metrics.recordRejected(ctx, code)
	span.SetStatus(codes.Error, code)

	appErr, isApp := apperror.AsAppError(err)
	switch {
	case isApp && appErr.HTTPStatus < 500:
		logger.Warn(ctx, "sale rejected", "code", code, "details", appErr.Details, "vendor_id", req.VendorID)
	default:
		span.RecordError(err)
		logger.Error(ctx, "sale registration failed",
			"code", code,
			"error", err,
			"customer_id", req.CustomerID,
			"vendor_id", req.VendorID,
			"zone_id", req.ZoneID,
			"lines", len(req.Lines),
		)
	}
	return err
}

func registeredPayload(s *Sale) map[string]any {
	lines := make([]map[string]any, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = map[string]any{
			"line_no":    l.LineNo,
			"product_id": l.ProductID.String(),
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.StringFixed(2),
			"line_total": l.LineTotal.StringFixed(2),
		}
	}
	return map[string]any{
		"sale_id":         s.ID.String(),
		"document_number": s.DocumentNumber(),
		"customer_id":     s.CustomerID.String(),
		"vendor_id":       s.VendorID.String(),
		"zone_id":         s.ZoneID.String(),
		"total_amount":    s.TotalAmount.StringFixed(2),
		"total_tax":       s.TotalTax.StringFixed(2),
		"total_discount":  s.TotalDiscount.StringFixed(2),
		"lines":           lines,
	}
}
