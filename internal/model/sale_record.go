package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is one transaction row owned by a company.
type SaleRecord struct {
	ID        uint            `gorm:"primaryKey"`
	Company   string          `gorm:"type:varchar(200);not null;index:idx_sale_records_company_product"`
	Product   string          `gorm:"type:varchar(200);not null;index:idx_sale_records_company_product"`
	Revenue   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int             `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (SaleRecord) TableName() string { return "sale_records" }

// Snapshot captures the fields a ledger entry needs to rebuild the row.
func (s *SaleRecord) Snapshot() SaleSnapshot {
	return SaleSnapshot{Product: s.Product, Revenue: s.Revenue, Quantity: s.Quantity}
}

// ProductRevenue is one row of the revenue-by-product aggregate.
type ProductRevenue struct {
	Product  string          `json:"product"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int64           `json:"quantity"`
	Sales    int64           `json:"sales"`
}
