package inventory

import (
	"context"
	"database/sql"
	"errors"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectColumns = `SELECT id, product_name, quantity, price, cost, supplier_id FROM inventory`

func (r *postgresRepo) List(ctx context.Context) ([]*Item, error) {
	return r.query(ctx, selectColumns+` ORDER BY id ASC`)
}

func (r *postgresRepo) ListByName(ctx context.Context) ([]*Item, error) {
	return r.query(ctx, selectColumns+` ORDER BY product_name ASC`)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Item, error) {
	it, err := r.scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

func (r *postgresRepo) Create(ctx context.Context, it *Item) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO inventory (product_name, quantity, price, cost, supplier_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		it.ProductName, it.Quantity, it.Price, it.Cost, it.SupplierID).Scan(&it.ID)
}

func (r *postgresRepo) Update(ctx context.Context, it *Item) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET product_name=$1, quantity=$2, price=$3, cost=$4, supplier_id=$5
		WHERE id=$6`,
		it.ProductName, it.Quantity, it.Price, it.Cost, it.SupplierID, it.ID)
	return affected(res, err)
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, id int64, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE inventory SET quantity=$1 WHERE id=$2`, qty, id)
	return affected(res, err)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id=$1`, id)
	return affected(res, err)
}

func (r *postgresRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id IS NOT NULL`)
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) query(ctx context.Context, q string) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Item{}
	for rows.Next() {
		it, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Item, error) {
	it := &Item{}
	if err := row.Scan(&it.ID, &it.ProductName, &it.Quantity, &it.Price, &it.Cost, &it.SupplierID); err != nil {
		return nil, err
	}
	return it, nil
}
