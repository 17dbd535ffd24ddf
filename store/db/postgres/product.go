package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

const productColumns = "id, uid, company_id, name, description, price_cents, stock, image_url, is_active, created_ts"

func (d *DB) CreateProduct(ctx context.Context, create *store.Product) (*store.Product, error) {
	fields := []string{"uid", "company_id", "name", "description", "price_cents", "stock", "image_url", "is_active", "created_ts"}
	args := []any{create.UID, create.CompanyID, create.Name, create.Description, create.PriceCents, create.Stock, create.ImageURL, create.IsActive, create.CreatedTs}

	stmt := `INSERT INTO product (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create product")
	}
	return create, nil
}

func (d *DB) ListProducts(ctx context.Context, find *store.FindProduct) ([]*store.Product, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}
	if find.Query != nil {
		pattern := "%" + strings.ToLower(*find.Query) + "%"
		clause := "(LOWER(name) LIKE " + placeholder(len(args)+1) + " OR LOWER(description) LIKE " + placeholder(len(args)+2) + ")"
		where, args = append(where, clause), append(args, pattern, pattern)
	}

	query := `SELECT ` + productColumns + ` FROM product WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	defer rows.Close()

	list := make([]*store.Product, 0)
	for rows.Next() {
		p := &store.Product{}
		if err := rows.Scan(&p.ID, &p.UID, &p.CompanyID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan product")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate products")
	}
	return list, nil
}

func (d *DB) UpdateProduct(ctx context.Context, update *store.UpdateProduct) (*store.Product, error) {
	set, args := []string{}, []any{}
	if update.PriceCents != nil {
		set, args = append(set, "price_cents = "+placeholder(len(args)+1)), append(args, *update.PriceCents)
	}
	if update.Stock != nil {
		set, args = append(set, "stock = "+placeholder(len(args)+1)), append(args, *update.Stock)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE product SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + productColumns
	p := &store.Product{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&p.ID, &p.UID, &p.CompanyID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update product")
	}
	return p, nil
}
