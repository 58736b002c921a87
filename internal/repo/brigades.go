package repo

import (
	"context"
	"database/sql"

	"fieldline/internal/domain"
)

func (r Repo) UpsertBrigade(ctx context.Context, b domain.Brigade) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO brigades(id,name,phone,status,login) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, phone=excluded.phone, login=excluded.login`,
		b.ID, b.Name, nullable(b.Phone), b.Status, b.Login)
	return err
}

func (r Repo) GetBrigade(ctx context.Context, id string) (domain.Brigade, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(phone,''),status,login FROM brigades WHERE id=?`, id)
	var b domain.Brigade
	err := row.Scan(&b.ID, &b.Name, &b.Phone, &b.Status, &b.Login)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	return b, err
}

func (r Repo) ListBrigades(ctx context.Context) ([]domain.Brigade, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(phone,''),status,login FROM brigades ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Brigade
	for rows.Next() {
		var b domain.Brigade
		if err := rows.Scan(&b.ID, &b.Name, &b.Phone, &b.Status, &b.Login); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) UpdateBrigadeStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE brigades SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
