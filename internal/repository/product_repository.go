package repository

import (
	"context"
	"database/sql"
	"errors"

	"zarab-collections/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

var tracer = otel.Tracer("zarab-collections/internal/repository")

// ProductRepository defines the interface for product data access.
// Every list reads the whole collection; there is no paging or caching.
type ProductRepository interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input domain.ProductInput) error
	Delete(ctx context.Context, id int64) error
}

type productRepository struct {
	db      *sql.DB
	typeMap *pgtype.Map
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db, typeMap: pgtype.NewMap()}
}

const productColumns = `id, name, description, price, image_url, image_data, category, collection, sizes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *productRepository) scan(row rowScanner) (*domain.Product, error) {
	var (
		product    domain.Product
		imageData  sql.NullString
		collection sql.NullString
		sizes      []string
	)

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&imageData,
		&product.Category,
		&collection,
		r.typeMap.SQLScanner(&sizes),
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.ImageData = imageData.String
	if collection.Valid {
		c := collection.String
		product.Collection = &c
	}
	product.Sizes = make([]domain.Size, 0, len(sizes))
	for _, s := range sizes {
		product.Sizes = append(product.Sizes, domain.Size(s))
	}

	return &product, nil
}

func sizeLabels(sizes []domain.Size) []string {
	normalized := domain.NormalizeSizes(sizes)
	labels := make([]string, len(normalized))
	for i, s := range normalized {
		labels[i] = string(s)
	}
	return labels
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "postgresql"))...),
	)
}

// record marks the span failed and passes err through
func record(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func fail(span trace.Span, op string, err error) error {
	return record(span, domain.NewBackendError(op, err))
}

// ListAll returns every product, newest first. Rows created at the same instant keep insertion order.
func (r *productRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	ctx, span := startSpan(ctx, "products.list_all")
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fail(span, "list products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := r.scan(rows)
		if err != nil {
			return nil, fail(span, "scan product", err)
		}
		products = append(products, *product)
	}

	if err = rows.Err(); err != nil {
		return nil, fail(span, "iterate products", err)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := startSpan(ctx, "products.find_by_id", attribute.Int64("product.id", id))
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fail(span, "find product by ID", err)
	}

	return product, nil
}

// Create inserts a new product; the database assigns id and timestamps
func (r *productRepository) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	ctx, span := startSpan(ctx, "products.create")
	defer span.End()

	query := `
		INSERT INTO products (name, description, price, image_url, image_data, category, collection, sizes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING ` + productColumns

	product, err := r.scan(r.db.QueryRowContext(
		ctx,
		query,
		input.Name,
		input.Description,
		input.Price,
		input.ImageURL,
		input.ImageData,
		input.Category,
		input.Collection,
		sizeLabels(input.Sizes),
	))
	if err != nil {
		return nil, fail(span, "create product", err)
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))
	return product, nil
}

// Update overwrites every editable field of the product
func (r *productRepository) Update(ctx context.Context, id int64, input domain.ProductInput) error {
	ctx, span := startSpan(ctx, "products.update", attribute.Int64("product.id", id))
	defer span.End()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, image_url = $5,
		    image_data = NULLIF($6, ''), category = $7, collection = $8, sizes = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		id,
		input.Name,
		input.Description,
		input.Price,
		input.ImageURL,
		input.ImageData,
		input.Category,
		input.Collection,
		sizeLabels(input.Sizes),
	)
	if err != nil {
		return fail(span, "update product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fail(span, "get rows affected", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := startSpan(ctx, "products.delete", attribute.Int64("product.id", id))
	defer span.End()

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fail(span, "delete product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fail(span, "get rows affected", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
