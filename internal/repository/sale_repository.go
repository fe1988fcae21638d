package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

// SaleRepository handles persistence of product sales.
type SaleRepository struct {
	db *sqlx.DB
}

// NewSaleRepository constructs the repository.
func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create persists a sale row inside the caller's transaction.
func (r *SaleRepository) Create(ctx context.Context, exec sqlx.ExtContext, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	sale.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO sales (id, product_id, student_id, quantity, total, method, sold_at, created_at)
        VALUES (:id, :product_id, :student_id, :quantity, :total, :method, :sold_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, sale); err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// List returns sales filtered by the provided criteria.
func (r *SaleRepository) List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, int, error) {
	base := "FROM sales"
	var conditions []string
	var args []interface{}

	if filter.ProductID != "" {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)+1))
		args = append(args, filter.ProductID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Month > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM sold_at) = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM sold_at) = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, product_id, student_id, quantity, total, method, sold_at, created_at
        %s ORDER BY sold_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var sales []models.Sale
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}
	return sales, total, nil
}
