package sales

import (
	"context"
	"database/sql"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) List(ctx context.Context) ([]*Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, price, sale_date, created_at
		FROM sales ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Sale{}
	for rows.Next() {
		s := &Sale{}
		var createdAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.Price, &s.SaleDate, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			s.CreatedAt = &createdAt.Time
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, s *Sale) error {
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sales (product_id, quantity, price, sale_date)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		s.ProductID, s.Quantity, s.Price, s.SaleDate).Scan(&s.ID, &createdAt)
	if err != nil {
		return err
	}
	if createdAt.Valid {
		s.CreatedAt = &createdAt.Time
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id=$1`, id)
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

func (r *postgresRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id IS NOT NULL`)
	return err
}
