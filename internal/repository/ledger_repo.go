package repository

import (
	"context"

	"github.com/bharathmeg/InsightHub/internal/model"

	"gorm.io/gorm"
)

type LedgerRepository interface {
	Append(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error
	// Latest returns the newest entry for (email, company), ordered by id.
	Latest(ctx context.Context, tx *gorm.DB, email, company string) (*model.LedgerEntry, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, email, company string) ([]model.LedgerEntry, error)
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) Append(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error {
	return conn(r.db, tx).WithContext(ctx).Create(e).Error
}

func (r *ledgerRepo) Latest(ctx context.Context, tx *gorm.DB, email, company string) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := conn(r.db, tx).WithContext(ctx).
		Where("email = ? AND company = ?", email, company).
		Order("id DESC").
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *ledgerRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(r.db, tx).WithContext(ctx).Delete(&model.LedgerEntry{}, id).Error
}

func (r *ledgerRepo) List(ctx context.Context, email, company string) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("email = ? AND company = ?", email, company).
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}
