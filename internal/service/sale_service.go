package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type productStore interface {
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, exec sqlx.ExtContext, id string, quantity int) error
}

type saleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, sale *models.Sale) error
	List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, int, error)
}

type saleLedgerWriter interface {
	CreateTx(ctx context.Context, exec sqlx.ExtContext, entry *models.LedgerEntry) error
}

type saleStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateProductRequest carries the fields accepted on product creation.
// Price is cents.
type CreateProductRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Price int64  `json:"price" validate:"gt=0"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest carries partial product updates.
type UpdateProductRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=120"`
	Price  *int64  `json:"price" validate:"omitempty,gt=0"`
	Stock  *int    `json:"stock" validate:"omitempty,gte=0"`
	Active *bool   `json:"active"`
}

// CreateSaleRequest records a front-desk sale.
type CreateSaleRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	StudentID *string `json:"student_id"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	Method    string  `json:"method" validate:"required,oneof=CASH TRANSFER CARD"`
}

// SaleService manages the product catalog and records sales. A sale
// decrements stock and writes a settled income ledger entry in the same
// transaction as the sale row.
type SaleService struct {
	products  productStore
	sales     saleStore
	ledger    saleLedgerWriter
	students  saleStudentReader
	tx        txProvider
	now       func() time.Time
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSaleService wires the sale dependencies.
func NewSaleService(
	products productStore,
	sales saleStore,
	ledger saleLedgerWriter,
	students saleStudentReader,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *SaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		products:  products,
		sales:     sales,
		ledger:    ledger,
		students:  students,
		tx:        tx,
		now:       time.Now,
		validator: validate,
		logger:    logger,
	}
}

// ListProducts returns the product catalog.
func (s *SaleService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}
	return products, nil
}

// GetProduct returns one product.
func (s *SaleService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	return product, nil
}

// CreateProduct adds an item to the catalog.
func (s *SaleService) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}
	product := &models.Product{
		Name:   req.Name,
		Price:  req.Price,
		Stock:  req.Stock,
		Active: true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create product")
	}
	s.logger.Info("product created", zap.String("product_id", product.ID))
	return product, nil
}

// UpdateProduct applies a partial update to a product.
func (s *SaleService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update product")
	}
	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *SaleService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete product")
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// ListSales returns sales matching the filter.
func (s *SaleService) ListSales(ctx context.Context, filter models.SaleFilter) ([]models.Sale, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	sales, total, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sales")
	}
	return sales, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// RecordSale checks stock, computes the total at the current price, and in
// one transaction inserts the sale, decrements stock and writes a settled
// income ledger entry. Selling more units than are in stock is a conflict.
func (s *SaleService) RecordSale(ctx context.Context, req CreateSaleRequest) (*models.Sale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sale payload")
	}
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	if !product.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "product is inactive")
	}
	if product.Stock < req.Quantity {
		return nil, appErrors.ErrOutOfStock
	}
	if req.StudentID != nil && *req.StudentID != "" {
		if _, err := s.students.FindByID(ctx, *req.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
	}

	soldAt := s.now()
	sale := &models.Sale{
		ProductID: product.ID,
		StudentID: req.StudentID,
		Quantity:  req.Quantity,
		Total:     product.Price * int64(req.Quantity),
		Method:    req.Method,
		SoldAt:    soldAt,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.products.DecrementStock(ctx, tx, product.ID, req.Quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrOutOfStock
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decrement stock")
		return nil, err
	}
	if err = s.sales.Create(ctx, tx, sale); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sale")
		return nil, err
	}
	entry := &models.LedgerEntry{
		Type:        models.LedgerTypeIncome,
		Description: fmt.Sprintf("Sale: %s x%d", product.Name, req.Quantity),
		Amount:      sale.Total,
		Date:        soldAt,
		Status:      models.LedgerStatusSettled,
	}
	if err = s.ledger.CreateTx(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ledger entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit sale")
		return nil, err
	}

	s.logger.Info("sale recorded",
		zap.String("product_id", product.ID),
		zap.Int("quantity", req.Quantity),
		zap.Int64("total", sale.Total),
	)
	return sale, nil
}
