package sale

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/core/tx"
	"salesledger/internal/domain"
	"salesledger/internal/domain/audit"
	"salesledger/pkg/logger"
)

// CancelSale moves a sale to CANCELLED. Cancelling an already cancelled sale
// returns it unchanged. Stock is restored only when RestockOnCancel is set.
func (s *Service) CancelSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sale.Cancel", trace.WithAttributes(
		attribute.String("sale.id", saleID.String()),
	))
	defer span.End()

	var (
		result       *Sale
		transitioned bool
		restocked    []id.ID
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		transitioned, restocked = false, nil

		sale, err := s.lockActive(ctx, saleID)
		if err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		sale.Lines = lines
		result = sale

		if sale.IsCancelled() {
			return nil
		}

		before := sale.snapshot()
		sale.Status = StatusCancelled
		sale.Touch()

		if err := s.repo.UpdateHeader(ctx, sale); err != nil {
			return fmt.Errorf("update sale status: %w", err)
		}

		if s.cfg.RestockOnCancel {
			if restocked, err = s.restock(ctx, lines); err != nil {
				return err
			}
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   sale.ID,
			EventType:     EventSaleCancelled,
			Payload: map[string]any{
				"sale_id":         sale.ID.String(),
				"document_number": sale.DocumentNumber(),
				"vendor_id":       sale.VendorID.String(),
				"restocked":       s.cfg.RestockOnCancel,
			},
		}); err != nil {
			return fmt.Errorf("publish %s: %w", EventSaleCancelled, err)
		}

		if err := s.audit.LogChange(ctx, aggregateType, sale.ID, audit.ActionCancel, audit.Diff(before, sale.snapshot())); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}

		transitioned = true
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, apperror.CodeOf(err))
		if !apperror.IsAppError(err) {
			logger.Error(ctx, "sale cancellation failed", "sale_id", saleID, "error", err)
		}
		return nil, err
	}

	if transitioned {
		s.cache.InvalidateCache(ctx, restocked...)
		s.metrics.recordCancelled(ctx)
		logger.Info(ctx, "sale cancelled",
			"sale_id", result.ID,
			"document_number", result.DocumentNumber(),
			"restocked", len(restocked) > 0,
		)
	}
	return result, nil
}

// restock returns line quantities to stock, locking products in canonical order.
func (s *Service) restock(ctx context.Context, lines []Line) ([]id.ID, error) {
	qty := make(map[id.ID]int64, len(lines))
	ids := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
		ids = append(ids, l.ProductID)
	}

	ids = id.SortedUnique(ids)
	for _, productID := range ids {
		if _, err := s.products.LockProduct(ctx, productID); err != nil {
			return nil, fmt.Errorf("lock product %s: %w", productID, err)
		}
		if err := s.products.IncrementStock(ctx, productID, qty[productID]); err != nil {
			return nil, fmt.Errorf("restock %s: %w", productID, err)
		}
	}
	return ids, nil
}

// GetSale returns a sale with its lines.
func (s *Service) GetSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	var result *Sale
	err := tx.ReadConsistent(ctx, s.txManager, func(ctx context.Context) error {
		sale, err := s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.EnsureActive("sale"); err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		sale.Lines = lines
		result = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListSales returns sale headers, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.Normalize()
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// UpdateSaleHeader edits payment method, document number and notes.
// Lines and totals are immutable.
func (s *Service) UpdateSaleHeader(ctx context.Context, saleID id.ID, patch HeaderPatch) (*Sale, error) {
	patch.normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var result *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.lockActive(ctx, saleID)
		if err != nil {
			return err
		}
		if patch.Version != 0 && patch.Version != sale.Version {
			return apperror.NewConcurrentModification("sale", saleID.String()).
				WithDetail("expected_version", patch.Version).
				WithDetail("actual_version", sale.Version)
		}
		if err := sale.CanModify(); err != nil {
			return err
		}

		before := sale.snapshot()

		if patch.PaymentMethod != nil {
			sale.PaymentMethod = *patch.PaymentMethod
		}
		if patch.DocumentNumber != nil {
			number := strings.TrimSpace(*patch.DocumentNumber)
			if number != "" && number != sale.DocumentNumber() {
				if err := s.ensureNumberFree(ctx, sale.VendorID, number, sale.ID); err != nil {
					return err
				}
			}
			sale.SetNumber(number)
		}
		if patch.Notes != nil {
			notes := strings.TrimSpace(*patch.Notes)
			sale.Notes = nil
			if notes != "" {
				sale.Notes = &notes
			}
		}

		changes := audit.Diff(before, sale.snapshot())
		if len(changes) == 0 {
			result = sale
			return nil
		}

		sale.Touch()
		if err := s.repo.UpdateHeader(ctx, sale); err != nil {
			return fmt.Errorf("update sale header: %w", err)
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   sale.ID,
			EventType:     EventSaleHeaderUpdated,
			Payload:       map[string]any{"sale_id": sale.ID.String(), "changes": changes},
		}); err != nil {
			return fmt.Errorf("publish %s: %w", EventSaleHeaderUpdated, err)
		}
		if err := s.audit.LogChange(ctx, aggregateType, sale.ID, audit.ActionUpdate, changes); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		sale.Lines = lines
		result = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale header updated", "sale_id", saleID, "version", result.Version)
	return result, nil
}

// ArchiveSale soft-removes a sale. Its document number becomes reusable.
// Stock is not touched.
func (s *Service) ArchiveSale(ctx context.Context, saleID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.lockActive(ctx, saleID)
		if err != nil {
			return err
		}

		before := sale.snapshot()
		sale.Archive()
		if err := s.repo.UpdateHeader(ctx, sale); err != nil {
			return fmt.Errorf("archive sale: %w", err)
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   sale.ID,
			EventType:     EventSaleArchived,
			Payload:       map[string]any{"sale_id": sale.ID.String()},
		}); err != nil {
			return fmt.Errorf("publish %s: %w", EventSaleArchived, err)
		}
		return s.audit.LogChange(ctx, aggregateType, sale.ID, audit.ActionArchive, audit.Diff(before, sale.snapshot()))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale archived", "sale_id", saleID)
	return nil
}

// History returns the audit trail of a sale, newest first.
func (s *Service) History(ctx context.Context, saleID id.ID, limit int) ([]audit.Entry, error) {
	if _, err := s.repo.GetByID(ctx, saleID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.audit.History(ctx, aggregateType, saleID, limit)
}

// lockActive reads a non-archived sale with a row lock.
func (s *Service) lockActive(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := s.repo.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := sale.EnsureActive("sale"); err != nil {
		return nil, err
	}
	return sale, nil
}
