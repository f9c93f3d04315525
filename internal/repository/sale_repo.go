package repository

import (
	"context"

	"github.com/bharathmeg/InsightHub/internal/model"

	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.SaleRecord) error
	FindForCompany(ctx context.Context, tx *gorm.DB, company string, id uint) (*model.SaleRecord, error)
	// FindLatestByProduct returns the most recently inserted row for product.
	FindLatestByProduct(ctx context.Context, tx *gorm.DB, company, product string) (*model.SaleRecord, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	ListByCompany(ctx context.Context, company string) ([]model.SaleRecord, error)
	RevenueByProduct(ctx context.Context, company string) ([]model.ProductRevenue, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.SaleRecord) error {
	return conn(r.db, tx).WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindForCompany(ctx context.Context, tx *gorm.DB, company string, id uint) (*model.SaleRecord, error) {
	var s model.SaleRecord
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ? AND company = ?", id, company).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *saleRepo) FindLatestByProduct(ctx context.Context, tx *gorm.DB, company, product string) (*model.SaleRecord, error) {
	var s model.SaleRecord
	err := conn(r.db, tx).WithContext(ctx).
		Where("company = ? AND product = ?", company, product).
		Order("id DESC").
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *saleRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(r.db, tx).WithContext(ctx).Delete(&model.SaleRecord{}, id).Error
}

func (r *saleRepo) ListByCompany(ctx context.Context, company string) ([]model.SaleRecord, error) {
	var sales []model.SaleRecord
	err := r.db.WithContext(ctx).
		Where("company = ?", company).
		Order("id").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) RevenueByProduct(ctx context.Context, company string) ([]model.ProductRevenue, error) {
	rows := make([]model.ProductRevenue, 0)
	err := r.db.WithContext(ctx).Model(&model.SaleRecord{}).
		Select("product, SUM(revenue) AS revenue, SUM(quantity) AS quantity, COUNT(*) AS sales").
		Where("company = ?", company).
		Group("product").
		Order("product").
		Scan(&rows).Error
	return rows, err
}
