// Package visibility decides which tasks and reports an actor may see. The
// filters are pure: they take the full slice and the actor and return the
// visible subset, so callers can layer them over any read path.
package visibility

import (
	"fieldline/internal/config"
	"fieldline/internal/domain"
)

// Actor is the authenticated identity a request runs as.
type Actor struct {
	ID   string
	Role string
}

// Tasks returns the subset of tasks the actor may see.
//
// Crews see only their own tasks. Field admins see tasks that are not routed
// to any admin; a task claimed by an admin disappears from every admin's
// list. Dispatchers and warehouse keepers see everything.
func Tasks(actor Actor, tasks []domain.Task) []domain.Task {
	switch actor.Role {
	case config.RoleBrigade:
		return filterTasks(tasks, func(t domain.Task) bool {
			return t.AssignedBrigade != nil && *t.AssignedBrigade == actor.ID
		})
	case config.RoleAdmin:
		return filterTasks(tasks, func(t domain.Task) bool {
			return t.AssignedAdmin == nil
		})
	default:
		return tasks
	}
}

// MapTasks restricts a crew's map view to work currently underway. Other
// roles get their usual task visibility.
func MapTasks(actor Actor, tasks []domain.Task) []domain.Task {
	visible := Tasks(actor, tasks)
	if actor.Role != config.RoleBrigade {
		return visible
	}
	return filterTasks(visible, func(t domain.Task) bool {
		return t.Status == domain.StatusInProgress
	})
}

// Reports returns the subset of reports the actor may see. Crews see only
// their own reports; every other role sees all of them.
func Reports(actor Actor, reports []domain.Report) []domain.Report {
	if actor.Role != config.RoleBrigade {
		return reports
	}
	out := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		if r.Brigade == actor.ID {
			out = append(out, r)
		}
	}
	return out
}

func filterTasks(tasks []domain.Task, keep func(domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
