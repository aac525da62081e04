package repository

import (
	"context"
	"errors"
	"fmt"
	"taobao/crawler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type ProductRepository interface {
	SaveProduct(ctx context.Context, result *domain.ScrapeResult) (int64, error)
}

type productRepository struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

const upsertProductQuery = `
	INSERT INTO products (source_product_id, source_url, status, title, price, stock_quantity, crawled_at)
	VALUES ($1, $2, $3::product_status, $4, $5::numeric, $6, NOW())
	ON CONFLICT (source_product_id)
	DO UPDATE SET
		status = EXCLUDED.status,
		title = EXCLUDED.title,
		price = EXCLUDED.price,
		stock_quantity = EXCLUDED.stock_quantity,
		crawled_at = NOW()
	RETURNING id`

const insertImageQuery = `
	INSERT INTO product_images (product_id, image_type, original_url, sort_order)
	VALUES ($1, $2::image_type, $3, $4)
	ON CONFLICT (product_id, image_type, sort_order) DO NOTHING`

var ErrNoProductID = errors.New("result has no product id")

// SaveProduct upserts the product and its images in a single transaction and
// returns the internal product id. Nothing is written when any step fails.
func (r *productRepository) SaveProduct(ctx context.Context, result *domain.ScrapeResult) (id int64, err error) {
	if result.ProductID == nil {
		return 0, ErrNoProductID
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var price any
	if result.Price != nil {
		price = result.Price.StringFixed(2)
	}

	err = tx.QueryRow(ctx, upsertProductQuery,
		*result.ProductID,
		result.URL,
		string(result.Status()),
		result.Title,
		price,
		result.Stock,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product %s: %w", *result.ProductID, err)
	}

	for _, image := range result.Images() {
		if _, err = tx.Exec(ctx, insertImageQuery, id, string(image.Type), image.URL, image.SortOrder); err != nil {
			return 0, fmt.Errorf("failed to insert %s image %d for product %s: %w",
				image.Type, image.SortOrder, *result.ProductID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit product %s: %w", *result.ProductID, err)
	}

	return id, nil
}
