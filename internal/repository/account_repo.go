package repository

import (
	"context"

	"github.com/bharathmeg/InsightHub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	FindByIdentity(ctx context.Context, email, role, company string) (*model.Account, error)
	// AdminExists reports whether the company has an Admin other than exceptEmail.
	AdminExists(ctx context.Context, company, exceptEmail string) (bool, error)
	// UpsertPending inserts the account or, when (email, role, company) exists,
	// overwrites its pending password and OTP fields only.
	UpsertPending(ctx context.Context, a *model.Account) error
	Update(ctx context.Context, a *model.Account) error
	// ListCompanies returns companies where a verified account exists for (email, role).
	ListCompanies(ctx context.Context, email, role string) ([]string, error)
}

type accountRepo struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) FindByIdentity(ctx context.Context, email, role, company string) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).
		Where("email = ? AND role = ? AND company = ?", email, role, company).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *accountRepo) AdminExists(ctx context.Context, company, exceptEmail string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("role = ? AND company = ? AND email <> ?", model.RoleAdmin, company, exceptEmail).
		Count(&n).Error
	return n > 0, err
}

func (r *accountRepo) UpsertPending(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}, {Name: "role"}, {Name: "company"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pending_password_hash", "otp_hash", "otp_expires_at", "otp_purpose", "updated_at",
		}),
	}).Create(a).Error
}

func (r *accountRepo) Update(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *accountRepo) ListCompanies(ctx context.Context, email, role string) ([]string, error) {
	var companies []string
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ? AND role = ? AND verified_at IS NOT NULL", email, role).
		Order("company").
		Pluck("company", &companies).Error
	return companies, err
}
