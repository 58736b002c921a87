package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"fieldline/internal/domain"
)

const reportColumns = `id,task_id,brigade,COALESCE(comment,''),COALESCE(access,''),photos_json,materials_json,created_date`

func scanReportRow(scan func(dest ...any) error) (domain.Report, error) {
	var rep domain.Report
	var photos, materials string
	err := scan(&rep.ID, &rep.TaskID, &rep.Brigade, &rep.Comment, &rep.Access, &photos, &materials, &rep.CreatedDate)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal([]byte(photos), &rep.Photos); err != nil {
		return rep, fmt.Errorf("report %d photos: %w", rep.ID, err)
	}
	if err := json.Unmarshal([]byte(materials), &rep.Materials); err != nil {
		return rep, fmt.Errorf("report %d materials: %w", rep.ID, err)
	}
	if rep.Photos == nil {
		rep.Photos = []string{}
	}
	if rep.Materials == nil {
		rep.Materials = []domain.MaterialLine{}
	}
	return rep, nil
}

func (r Repo) InsertReport(ctx context.Context, tx *sql.Tx, rep domain.Report) (int64, error) {
	photos, err := json.Marshal(rep.Photos)
	if err != nil {
		return 0, err
	}
	materials, err := json.Marshal(rep.Materials)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO reports(task_id,brigade,comment,access,photos_json,materials_json,created_date)
VALUES (?,?,?,?,?,?,?)`,
		rep.TaskID, rep.Brigade, nullable(rep.Comment), nullable(rep.Access), string(photos), string(materials), rep.CreatedDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetReport(ctx context.Context, id int64) (domain.Report, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id)
	rep, err := scanReportRow(row.Scan)
	if err == sql.ErrNoRows {
		return rep, ErrNotFound
	}
	return rep, err
}

type ReportFilters struct {
	TaskID  int64
	Brigade string
	Limit   int
}

func (r Repo) ListReports(ctx context.Context, f ReportFilters) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	var args []any
	if f.TaskID > 0 {
		query += " AND task_id=?"
		args = append(args, f.TaskID)
	}
	if f.Brigade != "" {
		query += " AND brigade=?"
		args = append(args, f.Brigade)
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
	var res []domain.Report
	for rows.Next() {
		rep, err := scanReportRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}
