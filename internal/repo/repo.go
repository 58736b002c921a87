package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fieldline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id,address,floors,entrances,work_type,COALESCE(description,''),COALESCE(access_info,''),urgent,status,assigned_brigade,assigned_admin,created_by,created_date,assigned_date,completed_date`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var brigade, admin, assignedDate, completedDate sql.NullString
	var urgent int
	err := scan(&t.ID, &t.Address, &t.Floors, &t.Entrances, &t.WorkType, &t.Description, &t.AccessInfo,
		&urgent, &t.Status, &brigade, &admin, &t.CreatedBy, &t.CreatedDate, &assignedDate, &completedDate)
	if err != nil {
		return t, err
	}
	t.Urgent = urgent != 0
	if brigade.Valid {
		t.AssignedBrigade = &brigade.String
	}
	if admin.Valid {
		t.AssignedAdmin = &admin.String
	}
	if assignedDate.Valid {
		t.AssignedDate = &assignedDate.String
	}
	if completedDate.Valid {
		t.CompletedDate = &completedDate.String
	}
	return t, nil
}

// InsertTask inserts the task and returns the store-allocated id. The id is
// assigned inside the caller's transaction so concurrent creates never race
// on a read-count-then-increment pattern.
func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(address,floors,entrances,work_type,description,access_info,urgent,status,assigned_brigade,assigned_admin,created_by,created_date,assigned_date,completed_date)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Address, t.Floors, t.Entrances, t.WorkType, nullable(t.Description), nullable(t.AccessInfo),
		boolToInt(t.Urgent), t.Status, nullableStringPtr(t.AssignedBrigade), nullableStringPtr(t.AssignedAdmin),
		t.CreatedBy, t.CreatedDate, nullableStringPtr(t.AssignedDate), nullableStringPtr(t.CompletedDate))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateTask rewrites the full task row. Returns ErrNotFound when the id does
// not exist instead of the source system's silent no-op.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET address=?, floors=?, entrances=?, work_type=?, description=?, access_info=?, urgent=?, status=?, assigned_brigade=?, assigned_admin=?, assigned_date=?, completed_date=? WHERE id=?`,
		t.Address, t.Floors, t.Entrances, t.WorkType, nullable(t.Description), nullable(t.AccessInfo),
		boolToInt(t.Urgent), t.Status, nullableStringPtr(t.AssignedBrigade), nullableStringPtr(t.AssignedAdmin),
		nullableStringPtr(t.AssignedDate), nullableStringPtr(t.CompletedDate), t.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

type TaskFilters struct {
	Status          string
	Brigade         string
	Admin           string
	UnassignedAdmin bool
	UrgentOnly      bool
	Limit           int
	CursorID        int64
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Brigade != "" {
		clauses = append(clauses, "assigned_brigade=?")
		args = append(args, f.Brigade)
	}
	if f.Admin != "" {
		clauses = append(clauses, "assigned_admin=?")
		args = append(args, f.Admin)
	}
	if f.UnassignedAdmin {
		clauses = append(clauses, "assigned_admin IS NULL")
	}
	if f.UrgentOnly {
		clauses = append(clauses, "urgent=1")
	}
	if f.CursorID > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) CountTasksByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
