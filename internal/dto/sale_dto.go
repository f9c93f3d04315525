package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AddSaleRequest struct {
	Product  string          `json:"product"  validate:"required,min=1,max=200"`
	Revenue  decimal.Decimal `json:"revenue"  validate:"min=0"`
	Quantity int             `json:"quantity" validate:"min=0"`
}

// ExportQuery is bound from the query string of GET /v1/sales/export.
type ExportQuery struct {
	Format string `form:"format,default=csv" validate:"oneof=csv xlsx pdf"`
}

type EmailExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx pdf"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleResponse struct {
	ID        uint            `json:"id"`
	Company   string          `json:"company"`
	Product   string          `json:"product"`
	Revenue   decimal.Decimal `json:"revenue"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int            `json:"total"`
}

type LedgerEntryResponse struct {
	ID        uint            `json:"id"`
	Action    string          `json:"action"`
	SaleID    *uint           `json:"sale_id"`
	Product   string          `json:"product"`
	Revenue   decimal.Decimal `json:"revenue"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type LedgerListResponse struct {
	Data []LedgerEntryResponse `json:"data"`
}

type UndoResponse struct {
	Undone  bool   `json:"undone"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Product string `json:"product,omitempty"`
}

type ProductRevenueResponse struct {
	Product  string          `json:"product"`
	Revenue  decimal.Decimal `json:"revenue"`
	Display  string          `json:"display"` // revenue formatted in the report currency
	Quantity int64           `json:"quantity"`
	Sales    int64           `json:"sales"`
}

type RevenueByProductResponse struct {
	Company  string                   `json:"company"`
	Currency string                   `json:"currency"`
	Total    decimal.Decimal          `json:"total"`
	Data     []ProductRevenueResponse `json:"data"`
}

type EmailExportResponse struct {
	Queued bool   `json:"queued"`
	To     string `json:"to"`
	Format string `json:"format"`
}
