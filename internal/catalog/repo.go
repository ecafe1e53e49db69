package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, category, description, weight_kg, price, stock, images, ratings, created_at, updated_at`

func (r *Repo) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, nil
}

func (r *Repo) PriceOf(ctx context.Context, id int64) (int64, error) {
	var price int64
	err := postgres.Q(ctx, r.DB).QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, id).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query price %d: %w", id, err)
	}
	return price, nil
}

func (r *Repo) NameOf(ctx context.Context, id int64) (string, error) {
	var name string
	err := postgres.Q(ctx, r.DB).QueryRow(ctx, `SELECT name FROM products WHERE id=$1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrProductNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query name %d: %w", id, err)
	}
	return name, nil
}

// List pages through products ordered by id. An empty category lists all.
func (r *Repo) List(ctx context.Context, skip, limit int, category string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY id
		OFFSET $2 LIMIT $3`, category, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Upsert inserts p or updates the product with the same name. created
// reports which of the two happened.
func (r *Repo) Upsert(ctx context.Context, p *Product) (created bool, err error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO products(name, category, description, weight_kg, price, stock, images, ratings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			category=EXCLUDED.category,
			description=EXCLUDED.description,
			weight_kg=EXCLUDED.weight_kg,
			price=EXCLUDED.price,
			stock=EXCLUDED.stock,
			images=EXCLUDED.images,
			ratings=EXCLUDED.ratings,
			updated_at=now()
		RETURNING id, (xmax = 0)`,
		p.Name, p.Category, p.Description, p.WeightKg, p.Price, p.Stock, images, p.Ratings,
	).Scan(&p.ID, &created)
	if err != nil {
		return false, fmt.Errorf("upsert product %q: %w", p.Name, err)
	}
	return created, nil
}

// Search matches query case-insensitively against name, description and
// category.
func (r *Repo) Search(ctx context.Context, query string, skip, limit int) ([]Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	rows, err := r.DB.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1
		ORDER BY id
		OFFSET $2 LIMIT $3`, pattern, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Create inserts p. Unlike Upsert, an existing name is an error.
func (r *Repo) Create(ctx context.Context, p *Product) (*Product, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(name, category, description, weight_kg, price, stock, images, ratings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productCols,
		strings.TrimSpace(p.Name), p.Category, p.Description, p.WeightKg, p.Price, p.Stock, images, p.Ratings)
	created, err := scanProduct(row)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateProduct
	}
	if err != nil {
		return nil, fmt.Errorf("insert product %q: %w", p.Name, err)
	}
	return created, nil
}

// Update applies patch to product id under a row lock.
func (r *Repo) Update(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	var out *Product
	err := postgres.InTx(ctx, r.DB, func(ctx context.Context, tx pgx.Tx) error {
		cur, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("lock product %d: %w", id, err)
		}
		next := patch.Apply(*cur)
		next.Name = strings.TrimSpace(next.Name)
		if next.Images == nil {
			next.Images = []string{}
		}
		if err := Validate(&next); err != nil {
			return err
		}
		out, err = scanProduct(tx.QueryRow(ctx, `
			UPDATE products SET name=$2, category=$3, description=$4, weight_kg=$5,
				price=$6, stock=$7, images=$8, ratings=$9, updated_at=now()
			WHERE id=$1
			RETURNING `+productCols,
			id, next.Name, next.Category, next.Description, next.WeightKg,
			next.Price, next.Stock, next.Images, next.Ratings))
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		if err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes product id and returns what was removed. Orders keep
// their own copy of the line items, so history is unaffected.
func (r *Repo) Delete(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `DELETE FROM products WHERE id=$1 RETURNING `+productCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete product %d: %w", id, err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.WeightKg, &p.Price,
		&p.Stock, &p.Images, &p.Ratings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
