// Package document_repo provides the PostgreSQL implementation of the sale
// document repository.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/internal/domain/documents/sale"
	"salesledger/internal/infrastructure/storage/postgres"
)

const (
	salesTable = "sales"
	linesTable = "sale_lines"

	// dateColumn stores the document date of a sale
	dateColumn = "sale_date"
)

// saleColumnNames maps entity db tags to sales columns where they differ.
var saleColumnNames = map[string]string{"date": dateColumn}

func saleColumn(field string) string {
	if col, ok := saleColumnNames[field]; ok {
		return col
	}
	return field
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	copier    *postgres.BatchInserter

	// headerCols are entity fields; selectCols alias renamed columns back to them
	headerCols []string
	selectCols []string
	lineCols   []string
	// lineInsertCols excludes the generated line_total column
	lineInsertCols []string
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	lineCols := postgres.ExtractDBColumns[sale.Line]()
	insertCols := make([]string, 0, len(lineCols))
	for _, c := range lineCols {
		if c != "line_total" {
			insertCols = append(insertCols, c)
		}
	}

	headerCols := postgres.ExtractDBColumns[sale.Sale]()
	selectCols := make([]string, len(headerCols))
	for i, f := range headerCols {
		selectCols[i] = f
		if col := saleColumn(f); col != f {
			selectCols[i] = col + " AS " + f
		}
	}

	return &SaleRepo{
		txManager:      txManager,
		copier:         postgres.NewBatchInserter(txManager),
		headerCols:     headerCols,
		selectCols:     selectCols,
		lineCols:       lineCols,
		lineInsertCols: insertCols,
	}
}

func (r *SaleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *SaleRepo) headerSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(salesTable)
}

// InsertSale implements sale.Repository.
func (r *SaleRepo) InsertSale(ctx context.Context, s *sale.Sale) error {
	data := postgres.StructToMap(s)
	values := make(map[string]any, len(r.headerCols))
	for _, col := range r.headerCols {
		values[saleColumn(col)] = data[col]
	}

	sql, args, err := r.builder().Insert(salesTable).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert sale: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapSaleWriteErr("insert sale", s, err)
	}
	return nil
}

// mapSaleWriteErr turns a lost race on the vendor document slot into
// DUPLICATE_DOCUMENT; other database errors go through postgres.MapError.
func mapSaleWriteErr(op string, s *sale.Sale, err error) error {
	if postgres.IsUniqueViolation(err, postgres.ConstraintSaleDocument) {
		return apperror.NewDuplicateDocument(s.VendorID.String(), s.DocumentNumber()).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, postgres.MapError(err))
}

// InsertLines implements sale.Repository using COPY.
func (r *SaleRepo) InsertLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	rows := make([][]any, 0, len(lines))
	for i := range lines {
		l := lines[i]
		l.SaleID = saleID
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		rows = append(rows, r.lineRow(&l))
	}

	if _, err := r.copier.CopyFromSlice(ctx, linesTable, r.lineInsertCols, rows); err != nil {
		return fmt.Errorf("insert sale lines: %w", postgres.MapError(err))
	}
	return nil
}

func (r *SaleRepo) lineRow(l *sale.Line) []any {
	data := postgres.StructToMap(l)
	row := make([]any, 0, len(r.lineInsertCols))
	for _, col := range r.lineInsertCols {
		row = append(row, postgres.CopyValue(data[col]))
	}
	return row
}

// FindActiveByDocument implements sale.Repository.
func (r *SaleRepo) FindActiveByDocument(ctx context.Context, vendorID id.ID, number string) (*sale.Sale, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{
			"vendor_id":       vendorID,
			"document_number": number,
			"lifecycle":       entity.LifecycleActive,
		}).
		Where(squirrel.NotEq{"status": sale.StatusCancelled}).
		Limit(1)
	return r.findOne(ctx, q, number)
}

// GetByID implements sale.Repository. Archived sales are returned too.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.findOne(ctx, r.headerSelect().Where(squirrel.Eq{"id": saleID}), saleID.String())
}

// GetForUpdate implements sale.Repository.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	q := r.headerSelect().Where(squirrel.Eq{"id": saleID}).Suffix("FOR UPDATE")
	return r.findOne(ctx, q, saleID.String())
}

func (r *SaleRepo) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*sale.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale query: %w", err)
	}

	s := new(sale.Sale)
	if err := pgxscan.Get(ctx, r.querier(ctx), s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", key)
		}
		return nil, fmt.Errorf("get sale: %w", postgres.MapError(err))
	}
	return s, nil
}

// GetLines implements sale.Repository.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	sql, args, err := r.builder().
		Select(r.lineCols...).
		From(linesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	lines := []sale.Line{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return lines, nil
}

// UpdateHeader implements sale.Repository.
func (r *SaleRepo) UpdateHeader(ctx context.Context, s *sale.Sale) error {
	sql, args, err := r.builder().
		Update(salesTable).
		SetMap(map[string]any{
			"payment_method":  s.PaymentMethod,
			"document_number": s.Number,
			"notes":           s.Notes,
			"status":          s.Status,
			"lifecycle":       s.Lifecycle,
			"updated_at":      s.UpdatedAt,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID, "version": s.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update sale: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapSaleWriteErr("update sale", s, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("sale", s.ID.String())
	}

	s.Version++
	return nil
}

// List implements sale.Repository. Newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{Limit: filter.Limit, Offset: filter.Offset, Items: []*sale.Sale{}}

	q := applySaleFilter(r.headerSelect(), filter)

	countSQL, countArgs, err := r.builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count sales: %w", err)
	}

	q = q.OrderBy(dateColumn+" DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}
	return result, nil
}

func applySaleFilter(q squirrel.SelectBuilder, f sale.ListFilter) squirrel.SelectBuilder {
	if !f.IncludeArchived {
		q = q.Where(squirrel.Eq{"lifecycle": entity.LifecycleActive})
	}
	if f.VendorID != nil {
		q = q.Where(squirrel.Eq{"vendor_id": *f.VendorID})
	}
	if f.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *f.CustomerID})
	}
	if f.ZoneID != nil {
		q = q.Where(squirrel.Eq{"zone_id": *f.ZoneID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{dateColumn: *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{dateColumn: *f.DateTo})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"document_number": pattern},
			squirrel.ILike{"notes": pattern},
		})
	}
	return q
}

var _ sale.Repository = (*SaleRepo)(nil)
