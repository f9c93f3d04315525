package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bharathmeg/InsightHub/internal/dto"
	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/repository"
	"github.com/bharathmeg/InsightHub/internal/session"
	"github.com/bharathmeg/InsightHub/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExportEmailer hands an export mail to whoever delivers it: the Redis
// dispatcher, or the email worker itself when no queue is configured.
type ExportEmailer interface {
	EnqueueExportEmail(ctx context.Context, payload worker.ExportEmailPayload) error
}

type SaleService interface {
	AddSale(ctx context.Context, sess session.Session, req dto.AddSaleRequest) (*dto.SaleResponse, error)
	// DeleteSale is a no-op when id does not exist in the caller's company.
	DeleteSale(ctx context.Context, sess session.Session, id uint) error
	ListSales(ctx context.Context, sess session.Session) (*dto.SaleListResponse, error)
	UndoLast(ctx context.Context, sess session.Session) (*dto.UndoResponse, error)
	ListLedger(ctx context.Context, sess session.Session) (*dto.LedgerListResponse, error)
	RevenueByProduct(ctx context.Context, sess session.Session) (*dto.RevenueByProductResponse, error)
	Export(ctx context.Context, sess session.Session, w io.Writer, format string) error
	EmailExport(ctx context.Context, sess session.Session, format string) (*dto.EmailExportResponse, error)
}

type saleService struct {
	sales    repository.SaleRepository
	ledger   repository.LedgerRepository
	cache    *infra.AnalyticsCache
	events   infra.EventPublisher
	exports  ExportEmailer
	currency string
	now      func() time.Time
}

// NewSaleService wires the sales use cases. cache may be nil to disable
// analytics caching.
func NewSaleService(
	sales repository.SaleRepository,
	ledger repository.LedgerRepository,
	cache *infra.AnalyticsCache,
	events infra.EventPublisher,
	exports ExportEmailer,
	currency string,
) SaleService {
	if events == nil {
		events = infra.NoopPublisher{}
	}
	return &saleService{
		sales:    sales,
		ledger:   ledger,
		cache:    cache,
		events:   events,
		exports:  exports,
		currency: currency,
		now:      time.Now,
	}
}

func requireAdmin(sess session.Session) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// ── AddSale ───────────────────────────────────────────────────────────────────
// One transaction:
//   1. insert the sale row
//   2. append an "add" ledger entry with the row id and its snapshot
// Cache invalidation and the event follow the commit.

func (s *saleService) AddSale(ctx context.Context, sess session.Session, req dto.AddSaleRequest) (*dto.SaleResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	product := strings.TrimSpace(req.Product)
	if product == "" || req.Revenue.IsNegative() || req.Quantity < 0 {
		return nil, ErrInvalidSale
	}

	now := s.now()
	rec := &model.SaleRecord{
		Company:   sess.Company,
		Product:   product,
		Revenue:   req.Revenue.Round(2),
		Quantity:  req.Quantity,
		CreatedAt: now,
	}
	err := s.sales.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sales.Create(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		return s.ledger.Append(ctx, tx, &model.LedgerEntry{
			Action:    model.ActionAdd,
			Data:      rec.Snapshot().Encode(),
			SaleID:    &rec.ID,
			Company:   sess.Company,
			Email:     sess.Email,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, sess, infra.EventSaleAdded, rec, "")
	return saleToResponse(rec), nil
}

// ── DeleteSale ────────────────────────────────────────────────────────────────

func (s *saleService) DeleteSale(ctx context.Context, sess session.Session, id uint) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}

	var deleted *model.SaleRecord
	err := s.sales.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.sales.FindForCompany(ctx, tx, sess.Company, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.sales.Delete(ctx, tx, rec.ID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		if err := s.ledger.Append(ctx, tx, &model.LedgerEntry{
			Action:    model.ActionDelete,
			Data:      rec.Snapshot().Encode(),
			SaleID:    &rec.ID,
			Company:   sess.Company,
			Email:     sess.Email,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		deleted = rec
		return nil
	})
	if err != nil || deleted == nil {
		return err
	}

	s.afterMutation(ctx, sess, infra.EventSaleDeleted, deleted, "")
	return nil
}

func (s *saleService) ListSales(ctx context.Context, sess session.Session) (*dto.SaleListResponse, error) {
	sales, err := s.sales.ListByCompany(ctx, sess.Company)
	if err != nil {
		return nil, err
	}
	resp := &dto.SaleListResponse{Data: make([]dto.SaleResponse, len(sales)), Total: len(sales)}
	for i := range sales {
		resp.Data[i] = *saleToResponse(&sales[i])
	}
	return resp, nil
}

// ── UndoLast ──────────────────────────────────────────────────────────────────
// Reverts the caller's newest ledger entry:
//   add    → delete the snapshotted row, else the newest row with that product
//   delete → re-insert the snapshot with a fresh id and timestamp
// The entry is consumed in the same transaction.

func (s *saleService) UndoLast(ctx context.Context, sess session.Session) (*dto.UndoResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	var (
		resp    *dto.UndoResponse
		touched *model.SaleRecord
		action  string
	)
	err := s.sales.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.ledger.Latest(ctx, tx, sess.Email, sess.Company)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNothingToUndo
		}
		if err != nil {
			return err
		}
		action = entry.Action

		snap, err := entry.Snapshot()
		if err != nil {
			log.Warn().Err(err).Uint("entry_id", entry.ID).Msg("undo: discarding unreadable ledger entry")
			resp = &dto.UndoResponse{Undone: false, Message: "discarded unreadable ledger entry", Action: entry.Action}
			return s.ledger.Delete(ctx, tx, entry.ID)
		}

		switch entry.Action {
		case model.ActionAdd:
			touched, err = s.undoAdd(ctx, tx, sess.Company, entry.SaleID, snap.Product)
		case model.ActionDelete:
			touched, err = s.undoDelete(ctx, tx, sess.Company, snap)
		default:
			log.Warn().Str("action", entry.Action).Uint("entry_id", entry.ID).Msg("undo: unknown ledger action")
		}
		if err != nil {
			return err
		}
		if err := s.ledger.Delete(ctx, tx, entry.ID); err != nil {
			return err
		}
		resp = &dto.UndoResponse{Undone: true, Message: "undone", Action: entry.Action, Product: snap.Product}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if touched != nil {
		s.afterMutation(ctx, sess, infra.EventSaleUndone, touched, action)
	}
	return resp, nil
}

func (s *saleService) undoAdd(ctx context.Context, tx *gorm.DB, company string, saleID *uint, product string) (*model.SaleRecord, error) {
	var target *model.SaleRecord
	if saleID != nil {
		rec, err := s.sales.FindForCompany(ctx, tx, company, *saleID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		target = rec
	}
	if target == nil {
		rec, err := s.sales.FindLatestByProduct(ctx, tx, company, product)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		target = rec
	}
	if err := s.sales.Delete(ctx, tx, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *saleService) undoDelete(ctx context.Context, tx *gorm.DB, company string, snap model.SaleSnapshot) (*model.SaleRecord, error) {
	rec := &model.SaleRecord{
		Company:   company,
		Product:   snap.Product,
		Revenue:   snap.Revenue,
		Quantity:  snap.Quantity,
		CreatedAt: s.now(),
	}
	if err := s.sales.Create(ctx, tx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *saleService) ListLedger(ctx context.Context, sess session.Session) (*dto.LedgerListResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	entries, err := s.ledger.List(ctx, sess.Email, sess.Company)
	if err != nil {
		return nil, err
	}
	resp := &dto.LedgerListResponse{Data: make([]dto.LedgerEntryResponse, 0, len(entries))}
	for i := range entries {
		e := &entries[i]
		item := dto.LedgerEntryResponse{ID: e.ID, Action: e.Action, SaleID: e.SaleID, CreatedAt: e.CreatedAt}
		if snap, err := e.Snapshot(); err == nil {
			item.Product, item.Revenue, item.Quantity = snap.Product, snap.Revenue, snap.Quantity
		}
		resp.Data = append(resp.Data, item)
	}
	return resp, nil
}

// ── Analytics / export ────────────────────────────────────────────────────────

func (s *saleService) RevenueByProduct(ctx context.Context, sess session.Session) (*dto.RevenueByProductResponse, error) {
	rows, err := s.revenueRows(ctx, sess.Company)
	if err != nil {
		return nil, err
	}
	resp := &dto.RevenueByProductResponse{
		Company:  sess.Company,
		Currency: s.currency,
		Total:    decimal.Zero,
		Data:     make([]dto.ProductRevenueResponse, len(rows)),
	}
	for i, r := range rows {
		resp.Total = resp.Total.Add(r.Revenue)
		resp.Data[i] = dto.ProductRevenueResponse{
			Product:  r.Product,
			Revenue:  r.Revenue,
			Display:  infra.FormatMoney(r.Revenue, s.currency),
			Quantity: r.Quantity,
			Sales:    r.Sales,
		}
	}
	return resp, nil
}

func (s *saleService) revenueRows(ctx context.Context, company string) ([]model.ProductRevenue, error) {
	if s.cache != nil {
		rows, ok, err := s.cache.Get(ctx, company)
		if err != nil {
			log.Warn().Err(err).Str("company", company).Msg("analytics cache read failed")
		} else if ok {
			return rows, nil
		}
	}

	rows, err := s.sales.RevenueByProduct(ctx, company)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, company, rows); err != nil {
			log.Warn().Err(err).Str("company", company).Msg("analytics cache write failed")
		}
	}
	return rows, nil
}

func validFormat(format string) bool {
	switch format {
	case infra.FormatCSV, infra.FormatXLSX, infra.FormatPDF:
		return true
	}
	return false
}

func (s *saleService) Export(ctx context.Context, sess session.Session, w io.Writer, format string) error {
	if !validFormat(format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	sales, err := s.sales.ListByCompany(ctx, sess.Company)
	if err != nil {
		return err
	}
	return infra.WriteSales(w, format, sess.Company, sales, s.currency, s.now())
}

func (s *saleService) EmailExport(ctx context.Context, sess session.Session, format string) (*dto.EmailExportResponse, error) {
	if format == "" {
		format = infra.FormatCSV
	}
	if !validFormat(format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if s.exports == nil {
		return nil, ErrExportUnavailable
	}
	payload := worker.ExportEmailPayload{To: sess.Email, Company: sess.Company, Format: format}
	if err := s.exports.EnqueueExportEmail(ctx, payload); err != nil {
		return nil, fmt.Errorf("export email: %w", err)
	}
	return &dto.EmailExportResponse{Queued: true, To: sess.Email, Format: format}, nil
}

// afterMutation runs the best-effort side effects of a committed change.
func (s *saleService) afterMutation(ctx context.Context, sess session.Session, eventType string, rec *model.SaleRecord, action string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sess.Company); err != nil {
			log.Warn().Err(err).Str("company", sess.Company).Msg("analytics cache invalidation failed")
		}
	}
	event := infra.SaleEvent{
		Type:     eventType,
		Company:  sess.Company,
		Email:    sess.Email,
		SaleID:   rec.ID,
		Action:   action,
		Product:  rec.Product,
		Revenue:  rec.Revenue,
		Quantity: rec.Quantity,
		At:       s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("company", sess.Company).Msg("sale event publish failed")
	}
}

func saleToResponse(s *model.SaleRecord) *dto.SaleResponse {
	return &dto.SaleResponse{
		ID:        s.ID,
		Company:   s.Company,
		Product:   s.Product,
		Revenue:   s.Revenue,
		Quantity:  s.Quantity,
		CreatedAt: s.CreatedAt,
	}
}
