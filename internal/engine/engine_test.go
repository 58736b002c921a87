package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldline/internal/config"
	"fieldline/internal/db"
	"fieldline/internal/domain"
	"fieldline/internal/engine"
	"fieldline/internal/migrate"
	"fieldline/internal/repo"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
	Clock  *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return clock }
	return testEnv{Engine: eng, Ctx: context.Background(), Clock: &clock}
}

func (env testEnv) advance(d time.Duration) {
	*env.Clock = env.Clock.Add(d)
}

func strPtr(s string) *string { return &s }

func TestCreateTaskAssignsMonotonicIDs(t *testing.T) {
	env := newTestEnv(t)
	var last int64
	for i := 0; i < 5; i++ {
		task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
			Address:  "Lenina 1",
			WorkType: "house-wiring",
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		if task.ID <= last {
			t.Fatalf("id %d not greater than previous %d", task.ID, last)
		}
		last = task.ID
	}
}

func TestCreateTaskWithBrigadeStartsInProgress(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:         "Lenina 2",
		WorkType:        "house-wiring",
		AssignedBrigade: strPtr("brigade1"),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", task.Status)
	}
	if task.AssignedDate == nil || *task.AssignedDate != "2024-01-01T00:00:00Z" {
		t.Fatalf("assigned_date = %v, want stamp at creation", task.AssignedDate)
	}
}

func TestCreateTaskWithAdminStartsInProgress(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:       "Lenina 2a",
		WorkType:      "house-wiring",
		AssignedAdmin: strPtr("admin1"),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", task.Status)
	}
	if task.AssignedDate == nil {
		t.Fatal("assigned_date not stamped at creation")
	}
}

func TestCreateTaskUnassignedStaysNew(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 3",
		WorkType: "house-wiring",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.StatusNew {
		t.Fatalf("status = %s, want new", task.Status)
	}
	if task.AssignedDate != nil {
		t.Fatalf("assigned_date should be unset, got %v", *task.AssignedDate)
	}
}

func TestCreateTaskRejectsUnknownWorkType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 4",
		WorkType: "basket-weaving",
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateTaskStampsAssignedDateOnce(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 5",
		WorkType: "house-wiring",
	})
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.UpdateTask(env.Ctx, "dispatcher", task.ID, engine.UpdateTaskInput{
		AssignedBrigade: strPtr("brigade1"),
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Assignment alone starts the work, so the status and the date move
	// together.
	if task.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress after assignment", task.Status)
	}
	first := *task.AssignedDate

	env.advance(time.Hour)
	task, err = env.Engine.UpdateTask(env.Ctx, "dispatcher", task.ID, engine.UpdateTaskInput{
		AssignedBrigade: strPtr("brigade2"),
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *task.AssignedDate != first {
		t.Fatalf("assigned_date rewritten on reassign: %s != %s", *task.AssignedDate, first)
	}
}

func TestAssignWithExplicitStatusKeepsDateUnset(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 5a",
		WorkType: "house-wiring",
	})
	if err != nil {
		t.Fatal(err)
	}
	// An explicit non-active status wins over the assignment, and a task
	// that was never in_progress carries no assigned_date.
	task, err = env.Engine.UpdateTask(env.Ctx, "dispatcher", task.ID, engine.UpdateTaskInput{
		AssignedBrigade: strPtr("brigade1"),
		Status:          strPtr(domain.StatusPostponed),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if task.Status != domain.StatusPostponed {
		t.Fatalf("status = %s, want postponed", task.Status)
	}
	if task.AssignedDate != nil {
		t.Fatalf("assigned_date = %v, want unset while never in_progress", *task.AssignedDate)
	}
}

func TestInProgressWithoutBrigadeStampsAssignedDate(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 8",
		WorkType: "house-wiring",
	})
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.UpdateTask(env.Ctx, "dispatcher", task.ID, engine.UpdateTaskInput{
		Status: strPtr(domain.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if task.AssignedDate == nil {
		t.Fatal("assigned_date not stamped on in_progress")
	}
	first := *task.AssignedDate

	env.advance(time.Hour)
	task, err = env.Engine.UpdateTask(env.Ctx, "dispatcher", task.ID, engine.UpdateTaskInput{
		Status: strPtr(domain.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if *task.AssignedDate != first {
		t.Fatalf("assigned_date rewritten: %s != %s", *task.AssignedDate, first)
	}
}

func TestUpdateTaskStampsCompletedDateOnce(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:  "Lenina 6",
		WorkType: "house-wiring",
	})
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.CompleteTask(env.Ctx, "dispatcher", task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.CompletedDate == nil {
		t.Fatal("completed_date not stamped")
	}
	first := *task.CompletedDate

	env.advance(time.Hour)
	task, err = env.Engine.CompleteTask(env.Ctx, "dispatcher", task.ID)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if *task.CompletedDate != first {
		t.Fatalf("completed_date rewritten: %s != %s", *task.CompletedDate, first)
	}
}

func TestUpdateTaskMissingIDReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateTask(env.Ctx, "dispatcher", 9999, engine.UpdateTaskInput{
		Status: strPtr(domain.StatusPostponed),
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferMovesStockAndLogs(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AdjustWarehouseStock(env.Ctx, "warehouse", "Cable VOK 4", domain.StockMaterial, "m", 100); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	stock, err := env.Engine.TransferToBrigade(env.Ctx, "warehouse", "brigade1", "Cable VOK 4", domain.StockMaterial, 50)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if stock.Quantity != 50 {
		t.Fatalf("warehouse quantity = %v, want 50", stock.Quantity)
	}
	holdings, err := env.Engine.Repo.ListBrigadeStock(env.Ctx, "brigade1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 1 || holdings[0].Quantity != 50 {
		t.Fatalf("brigade holdings = %+v, want one row of 50", holdings)
	}
	entries, err := env.Engine.Repo.ListWarehouseLog(env.Ctx, repo.LogFilters{Operation: domain.OpIssueToBrigade})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Quantity != 50 || entries[0].Brigade == nil || *entries[0].Brigade != "brigade1" {
		t.Fatalf("log entries = %+v", entries)
	}
	issued, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "stock.issued", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(issued) != 1 || issued[0].EntityID != "Cable VOK 4" {
		t.Fatalf("stock.issued events = %+v", issued)
	}
}

func TestTransferClampsWarehouseAtZero(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AdjustWarehouseStock(env.Ctx, "warehouse", "Putty", domain.StockMaterial, "kg", 30); err != nil {
		t.Fatal(err)
	}
	stock, err := env.Engine.TransferToBrigade(env.Ctx, "warehouse", "brigade1", "Putty", domain.StockMaterial, 50)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if stock.Quantity != 0 {
		t.Fatalf("warehouse quantity = %v, want clamp at 0", stock.Quantity)
	}
	// The brigade credit and the log both carry the requested quantity.
	holdings, err := env.Engine.Repo.ListBrigadeStock(env.Ctx, "brigade1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 1 || holdings[0].Quantity != 50 {
		t.Fatalf("brigade holdings = %+v, want 50", holdings)
	}
	entries, err := env.Engine.Repo.ListWarehouseLog(env.Ctx, repo.LogFilters{Operation: domain.OpIssueToBrigade})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Quantity != 50 {
		t.Fatalf("log quantity = %+v, want requested 50", entries)
	}
}

func TestTransferUnknownItem(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.TransferToBrigade(env.Ctx, "warehouse", "brigade1", "Unobtainium", domain.StockMaterial, 1)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.TransferToBrigade(env.Ctx, "warehouse", "brigade1", "Putty", domain.StockMaterial, 0)
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdjustClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AdjustWarehouseStock(env.Ctx, "warehouse", "BO/16", domain.StockMaterial, "pcs", 10); err != nil {
		t.Fatal(err)
	}
	stock, err := env.Engine.AdjustWarehouseStock(env.Ctx, "warehouse", "BO/16", domain.StockMaterial, "", -25)
	if err != nil {
		t.Fatal(err)
	}
	if stock.Quantity != 0 {
		t.Fatalf("quantity = %v, want clamp at 0", stock.Quantity)
	}
}

func submitEnv(t *testing.T) (testEnv, int64) {
	t.Helper()
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "dispatcher", engine.CreateTaskInput{
		Address:         "Lenina 7",
		WorkType:        "house-wiring",
		AssignedBrigade: strPtr("brigade1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return env, task.ID
}

func TestSubmitReportCompleteClosesTask(t *testing.T) {
	env, taskID := submitEnv(t)
	res, err := env.Engine.SubmitReport(env.Ctx, "brigade1", engine.SubmitReportInput{
		TaskID:    taskID,
		Comment:   "installed wiring",
		Access:    "key at the concierge",
		Photos:    []string{"a.jpg"},
		Materials: []domain.MaterialLine{{Name: "Cable VOK 4", Quantity: 20}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Complete {
		t.Fatal("expected completeness gate to pass")
	}
	task, err := env.Engine.Repo.GetTask(env.Ctx, taskID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", task.Status)
	}
	if task.CompletedDate == nil {
		t.Fatal("completed_date not stamped")
	}
}

func TestSubmitReportPartialLeavesStatus(t *testing.T) {
	env, taskID := submitEnv(t)
	res, err := env.Engine.SubmitReport(env.Ctx, "brigade1", engine.SubmitReportInput{
		TaskID:  taskID,
		Comment: "half done",
		// no access note, photos or materials
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Complete {
		t.Fatal("partial report must not complete the task")
	}
	task, err := env.Engine.Repo.GetTask(env.Ctx, taskID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress untouched", task.Status)
	}
	// The report itself is stored.
	reports, err := env.Engine.Repo.ListReports(env.Ctx, repo.ReportFilters{TaskID: taskID})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
}

func TestSubmitReportWrongBrigade(t *testing.T) {
	env, taskID := submitEnv(t)
	_, err := env.Engine.SubmitReport(env.Ctx, "brigade2", engine.SubmitReportInput{
		TaskID:  taskID,
		Comment: "not my task",
	})
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSubmitReportConsumesBrigadeStock(t *testing.T) {
	env, taskID := submitEnv(t)
	if _, err := env.Engine.AdjustWarehouseStock(env.Ctx, "warehouse", "Cable VOK 4", domain.StockMaterial, "m", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.TransferToBrigade(env.Ctx, "warehouse", "brigade1", "Cable VOK 4", domain.StockMaterial, 40); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.SubmitReport(env.Ctx, "brigade1", engine.SubmitReportInput{
		TaskID:    taskID,
		Comment:   "done",
		Access:    "intercom 12",
		Photos:    []string{"a.jpg"},
		Materials: []domain.MaterialLine{{Name: "Cable VOK 4", Quantity: 25}},
	})
	if err != nil {
		t.Fatal(err)
	}
	holdings, err := env.Engine.Repo.ListBrigadeStock(env.Ctx, "brigade1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 1 || holdings[0].Quantity != 15 {
		t.Fatalf("holdings = %+v, want 15 left", holdings)
	}
	entries, err := env.Engine.Repo.ListWarehouseLog(env.Ctx, repo.LogFilters{Operation: domain.OpFieldConsumption})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Quantity != 25 {
		t.Fatalf("consumption log = %+v", entries)
	}
	consumed, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "stock.consumed", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(consumed) != 1 || consumed[0].ActorID != "brigade1" {
		t.Fatalf("stock.consumed events = %+v", consumed)
	}
}

func TestSubmitReportConsumptionClampsAtZero(t *testing.T) {
	env, taskID := submitEnv(t)
	// Brigade holds nothing; consumption records the line but holdings stay 0.
	_, err := env.Engine.SubmitReport(env.Ctx, "brigade1", engine.SubmitReportInput{
		TaskID:    taskID,
		Comment:   "done",
		Access:    "open door",
		Photos:    []string{"a.jpg"},
		Materials: []domain.MaterialLine{{Name: "Putty", Quantity: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	holdings, err := env.Engine.Repo.ListBrigadeStock(env.Ctx, "brigade1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 1 || holdings[0].Quantity != 0 {
		t.Fatalf("holdings = %+v, want clamp at 0", holdings)
	}
}

func TestSetBrigadeStatusWritesEvent(t *testing.T) {
	env := newTestEnv(t)
	b := domain.Brigade{ID: "brigade1", Name: "Crew 1", Status: "on duty", Login: "brigade1"}
	if err := env.Engine.Repo.UpsertBrigade(env.Ctx, b); err != nil {
		t.Fatal(err)
	}

	got, err := env.Engine.SetBrigadeStatus(env.Ctx, "dispatcher", "brigade1", "sick leave")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got.Status != "sick leave" {
		t.Fatalf("status = %s, want sick leave", got.Status)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "brigade.updated", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 1 || evts[0].EntityID != "brigade1" || evts[0].ActorID != "dispatcher" {
		t.Fatalf("brigade.updated events = %+v", evts)
	}
}

func TestSetBrigadeStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.SetBrigadeStatus(env.Ctx, "dispatcher", "brigade1", "moonlighting")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitReportRejectsBadMaterialLine(t *testing.T) {
	env, taskID := submitEnv(t)
	_, err := env.Engine.SubmitReport(env.Ctx, "brigade1", engine.SubmitReportInput{
		TaskID:    taskID,
		Comment:   "done",
		Materials: []domain.MaterialLine{{Name: "Putty", Quantity: -3}},
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
