package engine

import (
	"context"

	"fieldline/internal/domain"
	"fieldline/internal/events"
)

type SubmitReportInput struct {
	TaskID    int64
	Comment   string
	Access    string
	Photos    []string
	Materials []domain.MaterialLine
}

// SubmitResult is what a filed report produced: the stored report and whether
// the task was auto-completed by the completeness gate.
type SubmitResult struct {
	Report   domain.Report
	Complete bool
	Task     domain.Task
}

// SubmitReport files a report for the brigade's own task. The report, the
// material consumption and the eventual status transition commit as one
// transaction. A report missing any of comment, access, photos or materials
// is still stored but leaves the task status untouched.
func (e *Engine) SubmitReport(ctx context.Context, brigade string, in SubmitReportInput) (SubmitResult, error) {
	for _, line := range in.Materials {
		if line.Name == "" {
			return SubmitResult{}, ValidationError{Field: "materials", Reason: "material name must not be empty"}
		}
		if line.Quantity <= 0 {
			return SubmitResult{}, ValidationError{Field: "materials", Reason: "quantity for " + line.Name + " must be positive"}
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SubmitResult{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, in.TaskID)
	if err != nil {
		return SubmitResult{}, err
	}
	if t.AssignedBrigade == nil || *t.AssignedBrigade != brigade {
		return SubmitResult{}, ErrUnauthorized
	}

	now := e.now()
	rep := domain.Report{
		TaskID:      in.TaskID,
		Brigade:     brigade,
		Comment:     in.Comment,
		Access:      in.Access,
		Photos:      in.Photos,
		Materials:   in.Materials,
		CreatedDate: now,
	}
	if rep.Photos == nil {
		rep.Photos = []string{}
	}
	if rep.Materials == nil {
		rep.Materials = []domain.MaterialLine{}
	}
	id, err := e.Repo.InsertReport(ctx, tx, rep)
	if err != nil {
		return SubmitResult{}, err
	}
	rep.ID = id

	if err := e.recordConsumption(ctx, tx, brigade, rep.Materials, now); err != nil {
		return SubmitResult{}, err
	}

	complete := reportComplete(rep)
	if complete {
		t.Status = domain.StatusCompleted
		if t.CompletedDate == nil {
			t.CompletedDate = &now
		}
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return SubmitResult{}, err
		}
	}

	err = e.Events.Append(ctx, tx, "report.submitted", "report", idStr(id), brigade, events.EventPayload{
		"task_id":  in.TaskID,
		"complete": complete,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Report: rep, Complete: complete, Task: t}, nil
}

// reportComplete is the completeness gate: a report closes its task only when
// the comment, access note, at least one photo and at least one material line
// are all present.
func reportComplete(rep domain.Report) bool {
	return rep.Comment != "" && rep.Access != "" && len(rep.Photos) > 0 && len(rep.Materials) > 0
}
