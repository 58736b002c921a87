// Package engine holds the mutation logic: task lifecycle, inventory
// movements and report intake. Every mutation runs in its own SQLite
// transaction so writes are serialized and the audit event commits with the
// change it describes.
package engine

import (
	"context"
	"database/sql"
	"time"

	"fieldline/internal/config"
	"fieldline/internal/domain"
	"fieldline/internal/events"
	"fieldline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config

	// Now is swappable for tests.
	Now func() time.Time
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e *Engine) now() string {
	return e.Now().UTC().Format(time.RFC3339)
}

func hasValue(s *string) bool {
	return s != nil && *s != ""
}

// CreateTaskInput carries the caller-supplied fields of a new task. The id,
// status timestamps and created_date are allocated by the engine.
type CreateTaskInput struct {
	Address         string
	Floors          int
	Entrances       int
	WorkType        string
	Description     string
	AccessInfo      string
	Urgent          bool
	AssignedBrigade *string
	AssignedAdmin   *string
}

// CreateTask validates the input, assigns the initial status and persists the
// task. A task born with a brigade or an admin goes straight to in_progress
// with its assigned_date stamped.
func (e *Engine) CreateTask(ctx context.Context, actorID string, in CreateTaskInput) (domain.Task, error) {
	if in.Address == "" {
		return domain.Task{}, ValidationError{Field: "address", Reason: "must not be empty"}
	}
	if e.Config != nil && !e.Config.WorkTypeKnown(in.WorkType) {
		return domain.Task{}, ValidationError{Field: "work_type", Reason: "unknown work type " + in.WorkType}
	}
	now := e.now()
	t := domain.Task{
		Address:         in.Address,
		Floors:          in.Floors,
		Entrances:       in.Entrances,
		WorkType:        in.WorkType,
		Description:     in.Description,
		AccessInfo:      in.AccessInfo,
		Urgent:          in.Urgent,
		Status:          domain.StatusNew,
		AssignedBrigade: in.AssignedBrigade,
		AssignedAdmin:   in.AssignedAdmin,
		CreatedBy:       actorID,
		CreatedDate:     now,
	}
	if hasValue(in.AssignedBrigade) || hasValue(in.AssignedAdmin) {
		t.Status = domain.StatusInProgress
		t.AssignedDate = &now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, err
	}
	t.ID = id
	err = e.Events.Append(ctx, tx, "task.created", "task", idStr(id), actorID, events.EventPayload{
		"address":   t.Address,
		"work_type": t.WorkType,
		"status":    t.Status,
	})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTaskInput is a merge patch: nil fields are left untouched.
type UpdateTaskInput struct {
	Address         *string
	Floors          *int
	Entrances       *int
	WorkType        *string
	Description     *string
	AccessInfo      *string
	Urgent          *bool
	Status          *string
	AssignedBrigade *string
	AssignedAdmin   *string
	ClearBrigade    bool
	ClearAdmin      bool
}

// UpdateTask applies the patch and stamps lifecycle dates. assigned_date is
// written the first time the status reaches in_progress and never
// overwritten; likewise completed_date when the status first reaches
// completed.
func (e *Engine) UpdateTask(ctx context.Context, actorID string, id int64, in UpdateTaskInput) (domain.Task, error) {
	if in.WorkType != nil && e.Config != nil && !e.Config.WorkTypeKnown(*in.WorkType) {
		return domain.Task{}, ValidationError{Field: "work_type", Reason: "unknown work type " + *in.WorkType}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}

	changed := events.EventPayload{}
	if in.Address != nil {
		t.Address = *in.Address
		changed["address"] = t.Address
	}
	if in.Floors != nil {
		t.Floors = *in.Floors
	}
	if in.Entrances != nil {
		t.Entrances = *in.Entrances
	}
	if in.WorkType != nil {
		t.WorkType = *in.WorkType
		changed["work_type"] = t.WorkType
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AccessInfo != nil {
		t.AccessInfo = *in.AccessInfo
	}
	if in.Urgent != nil {
		t.Urgent = *in.Urgent
	}
	if in.ClearBrigade {
		t.AssignedBrigade = nil
		changed["assigned_brigade"] = nil
	} else if in.AssignedBrigade != nil {
		t.AssignedBrigade = in.AssignedBrigade
		changed["assigned_brigade"] = *in.AssignedBrigade
	}
	if in.ClearAdmin {
		t.AssignedAdmin = nil
	} else if in.AssignedAdmin != nil {
		t.AssignedAdmin = in.AssignedAdmin
	}
	if in.Status != nil {
		t.Status = *in.Status
		changed["status"] = t.Status
	}

	// Assigning a crew or admin to a fresh task starts the work, the same as
	// at creation. assigned_date exists only for tasks that have been
	// in_progress, so it is stamped off the status, not the assignee.
	if in.Status == nil && t.Status == domain.StatusNew &&
		(hasValue(in.AssignedBrigade) || hasValue(in.AssignedAdmin)) {
		t.Status = domain.StatusInProgress
		changed["status"] = t.Status
	}

	now := e.now()
	if t.Status == domain.StatusInProgress && t.AssignedDate == nil {
		t.AssignedDate = &now
	}
	if t.Status == domain.StatusCompleted && t.CompletedDate == nil {
		t.CompletedDate = &now
	}

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	err = e.Events.Append(ctx, tx, "task.updated", "task", idStr(id), actorID, changed)
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// CompleteTask forces a task to completed. Used by the report intake when the
// completeness gate passes and exposed directly for dispatcher overrides.
func (e *Engine) CompleteTask(ctx context.Context, actorID string, id int64) (domain.Task, error) {
	status := domain.StatusCompleted
	return e.UpdateTask(ctx, actorID, id, UpdateTaskInput{Status: &status})
}
