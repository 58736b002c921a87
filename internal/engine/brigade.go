package engine

import (
	"context"

	"fieldline/internal/domain"
	"fieldline/internal/events"
)

// SetBrigadeStatus validates the new status against the configured set and
// records the change together with its brigade.updated event in one
// transaction.
func (e *Engine) SetBrigadeStatus(ctx context.Context, actorID, id, status string) (domain.Brigade, error) {
	if e.Config != nil && !e.Config.BrigadeStatusKnown(status) {
		return domain.Brigade{}, ValidationError{Field: "status", Reason: "unknown brigade status " + status}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Brigade{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateBrigadeStatusTx(ctx, tx, id, status); err != nil {
		return domain.Brigade{}, err
	}
	err = e.Events.Append(ctx, tx, "brigade.updated", "brigade", id, actorID, events.EventPayload{
		"status": status,
	})
	if err != nil {
		return domain.Brigade{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Brigade{}, err
	}
	return e.Repo.GetBrigade(ctx, id)
}
