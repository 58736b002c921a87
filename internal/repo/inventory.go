package repo

import (
	"context"
	"database/sql"

	"fieldline/internal/domain"
)

func (r Repo) GetWarehouseStockTx(ctx context.Context, tx *sql.Tx, item, kind string) (domain.StockItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT item,kind,COALESCE(unit,''),quantity FROM warehouse_stock WHERE item=? AND kind=?`, item, kind)
	var s domain.StockItem
	err := row.Scan(&s.Item, &s.Kind, &s.Unit, &s.Quantity)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// UpsertWarehouseStock writes the absolute quantity for an item, creating the
// row when it does not exist yet.
func (r Repo) UpsertWarehouseStock(ctx context.Context, tx *sql.Tx, s domain.StockItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO warehouse_stock(item,kind,unit,quantity) VALUES (?,?,?,?)
ON CONFLICT(item,kind) DO UPDATE SET quantity=excluded.quantity, unit=excluded.unit`,
		s.Item, s.Kind, s.Unit, s.Quantity)
	return err
}

func (r Repo) ListWarehouseStock(ctx context.Context, kind string) ([]domain.StockItem, error) {
	query := `SELECT item,kind,COALESCE(unit,''),quantity FROM warehouse_stock`
	var args []any
	if kind != "" {
		query += " WHERE kind=?"
		args = append(args, kind)
	}
	query += " ORDER BY kind, item"
	return r.queryStock(ctx, query, args...)
}

func (r Repo) GetBrigadeStockTx(ctx context.Context, tx *sql.Tx, brigade, item, kind string) (domain.StockItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT item,kind,'',quantity FROM brigade_stock WHERE brigade=? AND item=? AND kind=?`, brigade, item, kind)
	var s domain.StockItem
	err := row.Scan(&s.Item, &s.Kind, &s.Unit, &s.Quantity)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	s.Brigade = brigade
	return s, err
}

// AddBrigadeStock adds delta to a brigade holding, creating the row at the
// delta when missing. A negative delta decrements; callers clamp.
func (r Repo) AddBrigadeStock(ctx context.Context, tx *sql.Tx, brigade, item, kind string, delta float64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO brigade_stock(brigade,item,kind,quantity) VALUES (?,?,?,?)
ON CONFLICT(brigade,item,kind) DO UPDATE SET quantity=quantity+excluded.quantity`,
		brigade, item, kind, delta)
	return err
}

func (r Repo) SetBrigadeStock(ctx context.Context, tx *sql.Tx, brigade, item, kind string, quantity float64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO brigade_stock(brigade,item,kind,quantity) VALUES (?,?,?,?)
ON CONFLICT(brigade,item,kind) DO UPDATE SET quantity=excluded.quantity`,
		brigade, item, kind, quantity)
	return err
}

func (r Repo) ListBrigadeStock(ctx context.Context, brigade, kind string) ([]domain.StockItem, error) {
	query := `SELECT item,kind,'',quantity,brigade FROM brigade_stock WHERE 1=1`
	var args []any
	if brigade != "" {
		query += " AND brigade=?"
		args = append(args, brigade)
	}
	if kind != "" {
		query += " AND kind=?"
		args = append(args, kind)
	}
	query += " ORDER BY brigade, kind, item"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StockItem
	for rows.Next() {
		var s domain.StockItem
		if err := rows.Scan(&s.Item, &s.Kind, &s.Unit, &s.Quantity, &s.Brigade); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) AppendWarehouseLog(ctx context.Context, tx *sql.Tx, e domain.WarehouseLogEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO warehouse_log(kind,operation,item,quantity,brigade,date) VALUES (?,?,?,?,?,?)`,
		e.Kind, e.Operation, e.Item, e.Quantity, nullableStringPtr(e.Brigade), e.Date)
	return err
}

type LogFilters struct {
	Kind      string
	Operation string
	Brigade   string
	Item      string
	Limit     int
}

func (r Repo) ListWarehouseLog(ctx context.Context, f LogFilters) ([]domain.WarehouseLogEntry, error) {
	query := `SELECT id,kind,operation,item,quantity,brigade,date FROM warehouse_log WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += " AND kind=?"
		args = append(args, f.Kind)
	}
	if f.Operation != "" {
		query += " AND operation=?"
		args = append(args, f.Operation)
	}
	if f.Brigade != "" {
		query += " AND brigade=?"
		args = append(args, f.Brigade)
	}
	if f.Item != "" {
		query += " AND item=?"
		args = append(args, f.Item)
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WarehouseLogEntry
	for rows.Next() {
		var e domain.WarehouseLogEntry
		var brigade sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &e.Operation, &e.Item, &e.Quantity, &brigade, &e.Date); err != nil {
			return nil, err
		}
		if brigade.Valid {
			e.Brigade = &brigade.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) queryStock(ctx context.Context, query string, args ...any) ([]domain.StockItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StockItem
	for rows.Next() {
		var s domain.StockItem
		if err := rows.Scan(&s.Item, &s.Kind, &s.Unit, &s.Quantity); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
