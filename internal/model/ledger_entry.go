package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger actions.
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
)

const snapshotSep = "|"

// ErrMalformedSnapshot is returned when a ledger data field cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed ledger snapshot")

// LedgerEntry records one mutating action so it can be undone.
// Entries are append-only; undo reads the newest one for (email, company) and deletes it.
type LedgerEntry struct {
	ID     uint   `gorm:"primaryKey"`
	Action string `gorm:"type:varchar(10);not null"`
	// Data is "product|revenue|quantity".
	Data string `gorm:"not null"`
	// SaleID is the row the action touched; nil on entries written before it was tracked.
	SaleID    *uint
	Company   string    `gorm:"type:varchar(200);not null;index:idx_ledger_entries_owner"`
	Email     string    `gorm:"type:varchar(254);not null;index:idx_ledger_entries_owner"`
	CreatedAt time.Time `gorm:"not null"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// Snapshot decodes Data.
func (e *LedgerEntry) Snapshot() (SaleSnapshot, error) {
	return DecodeSnapshot(e.Data)
}

// SaleSnapshot is the part of a SaleRecord kept in the ledger.
type SaleSnapshot struct {
	Product  string
	Revenue  decimal.Decimal
	Quantity int
}

// Encode renders the snapshot as "product|revenue|quantity".
func (s SaleSnapshot) Encode() string {
	return strings.Join([]string{s.Product, s.Revenue.String(), strconv.Itoa(s.Quantity)}, snapshotSep)
}

// DecodeSnapshot parses "product|revenue|quantity". The two numeric fields are
// taken from the right so product names may themselves contain the separator.
func DecodeSnapshot(data string) (SaleSnapshot, error) {
	qtyAt := strings.LastIndex(data, snapshotSep)
	if qtyAt < 0 {
		return SaleSnapshot{}, fmt.Errorf("%w: %q", ErrMalformedSnapshot, data)
	}
	revAt := strings.LastIndex(data[:qtyAt], snapshotSep)
	if revAt < 0 {
		return SaleSnapshot{}, fmt.Errorf("%w: %q", ErrMalformedSnapshot, data)
	}

	revenue, err := decimal.NewFromString(data[revAt+1 : qtyAt])
	if err != nil {
		return SaleSnapshot{}, fmt.Errorf("%w: revenue: %v", ErrMalformedSnapshot, err)
	}
	quantity, err := strconv.Atoi(data[qtyAt+1:])
	if err != nil {
		return SaleSnapshot{}, fmt.Errorf("%w: quantity: %v", ErrMalformedSnapshot, err)
	}
	return SaleSnapshot{Product: data[:revAt], Revenue: revenue, Quantity: quantity}, nil
}
