package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldline/internal/config"
	"fieldline/internal/domain"
)

func strPtr(s string) *string { return &s }

func sampleTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Address: "Main 1", Status: domain.StatusNew},
		{ID: 2, Address: "Main 2", Status: domain.StatusInProgress, AssignedBrigade: strPtr("brigade1")},
		{ID: 3, Address: "Main 3", Status: domain.StatusNew, AssignedAdmin: strPtr("admin1")},
		{ID: 4, Address: "Main 4", Status: domain.StatusCompleted, AssignedBrigade: strPtr("brigade1")},
		{ID: 5, Address: "Main 5", Status: domain.StatusInProgress, AssignedBrigade: strPtr("brigade2"), AssignedAdmin: strPtr("admin2")},
	}
}

func TestTasksBrigadeSeesOnlyOwn(t *testing.T) {
	got := Tasks(Actor{ID: "brigade1", Role: config.RoleBrigade}, sampleTasks())
	assert.Len(t, got, 2)
	for _, task := range got {
		assert.Equal(t, "brigade1", *task.AssignedBrigade)
	}
}

func TestTasksAdminExcludesRoutedTasks(t *testing.T) {
	// A task routed to any admin vanishes from every admin's list,
	// including the admin it was routed to.
	got := Tasks(Actor{ID: "admin1", Role: config.RoleAdmin}, sampleTasks())
	ids := []int64{}
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{1, 2, 4}, ids)
}

func TestTasksDispatcherSeesAll(t *testing.T) {
	got := Tasks(Actor{ID: "dispatcher", Role: config.RoleDispatcher}, sampleTasks())
	assert.Len(t, got, 5)
}

func TestTasksWarehouseSeesAll(t *testing.T) {
	got := Tasks(Actor{ID: "warehouse", Role: config.RoleWarehouse}, sampleTasks())
	assert.Len(t, got, 5)
}

func TestMapTasksBrigadeOnlyInProgress(t *testing.T) {
	got := MapTasks(Actor{ID: "brigade1", Role: config.RoleBrigade}, sampleTasks())
	assert.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestMapTasksDispatcherUnrestricted(t *testing.T) {
	got := MapTasks(Actor{ID: "dispatcher", Role: config.RoleDispatcher}, sampleTasks())
	assert.Len(t, got, 5)
}

func TestReportsBrigadeSeesOnlyOwn(t *testing.T) {
	reports := []domain.Report{
		{ID: 1, TaskID: 2, Brigade: "brigade1"},
		{ID: 2, TaskID: 5, Brigade: "brigade2"},
	}
	got := Reports(Actor{ID: "brigade1", Role: config.RoleBrigade}, reports)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	all := Reports(Actor{ID: "dispatcher", Role: config.RoleDispatcher}, reports)
	assert.Len(t, all, 2)
}
