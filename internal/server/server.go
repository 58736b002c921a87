// Package server exposes the HTTP API. Handlers are thin: they authenticate,
// gate by role, call the engine and translate errors into the shared envelope.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fieldline/internal/config"
	"fieldline/internal/domain"
	"fieldline/internal/engine"
	"fieldline/internal/engine/visibility"
	"fieldline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the shared error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Fieldline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Config, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Fieldline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLogin(group, cfg.Engine.Config, cfg.Auth)
	registerStatus(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerStock(group, cfg.Engine)
	registerBrigades(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	startNotifier(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, engine.ErrUnauthorized) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", ve.Error(), map[string]any{"field": ve.Field})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerLogin(api huma.API, cfg *config.Config, auth AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange a directory login for a token",
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		login := strings.TrimSpace(input.Body.Login)
		if login == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "login is required", nil)
		}
		u, ok := cfg.Directory[login]
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "unknown login", nil)
		}
		token, err := mintToken(auth.JWTSecret, login, u.Role, auth.TokenTTL, time.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: token, Role: u.Role}}, nil
	})
}

func registerStatus(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Task counts by status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		counts, err := e.Repo.CountTasksByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{"task_counts": counts}}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	type taskPath struct {
		ID int64 `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleDispatcher, config.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, actor.ID, engine.CreateTaskInput{
			Address:         input.Body.Address,
			Floors:          input.Body.Floors,
			Entrances:       input.Body.Entrances,
			WorkType:        input.Body.WorkType,
			Description:     input.Body.Description,
			AccessInfo:      input.Body.AccessInfo,
			Urgent:          input.Body.Urgent,
			AssignedBrigade: input.Body.AssignedBrigade,
			AssignedAdmin:   input.Body.AssignedAdmin,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List visible tasks",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Urgent bool   `query:"urgent"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{Status: input.Status, UrgentOnly: input.Urgent, Limit: input.Limit})
		if err != nil {
			return nil, handleError(err)
		}
		visible := visibility.Tasks(actor, tasks)
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: visible}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "map-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/map",
		Summary:     "Tasks for the map view",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: visibility.MapTasks(actor, tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.Repo.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if len(visibility.Tasks(actor, []domain.Task{t})) == 0 {
			// Hidden tasks are indistinguishable from missing ones.
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleDispatcher, config.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, actor.ID, input.ID, engine.UpdateTaskInput{
			Address:         input.Body.Address,
			Floors:          input.Body.Floors,
			Entrances:       input.Body.Entrances,
			WorkType:        input.Body.WorkType,
			Description:     input.Body.Description,
			AccessInfo:      input.Body.AccessInfo,
			Urgent:          input.Body.Urgent,
			Status:          input.Body.Status,
			AssignedBrigade: input.Body.AssignedBrigade,
			AssignedAdmin:   input.Body.AssignedAdmin,
			ClearBrigade:    input.Body.ClearBrigade,
			ClearAdmin:      input.Body.ClearAdmin,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/complete",
		Summary:     "Mark task completed",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleDispatcher, config.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CompleteTask(ctx, actor.ID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerReports(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-report",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/reports",
		Summary:       "Submit a field report",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body SubmitReportRequest `json:"body"`
	}) (*struct {
		Body SubmitReportResponse `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleBrigade)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.SubmitReport(ctx, actor.ID, engine.SubmitReportInput{
			TaskID:    input.ID,
			Comment:   input.Body.Comment,
			Access:    input.Body.Access,
			Photos:    input.Body.Photos,
			Materials: input.Body.Materials,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubmitReportResponse `json:"body"`
		}{Body: SubmitReportResponse{Report: res.Report, Complete: res.Complete, Status: res.Task.Status}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "List visible reports",
	}, func(ctx context.Context, input *struct {
		TaskID int64 `query:"task_id"`
		Limit  int   `query:"limit"`
	}) (*struct {
		Body []domain.Report `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		reports, err := e.Repo.ListReports(ctx, repo.ReportFilters{TaskID: input.TaskID, Limit: input.Limit})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Report `json:"body"`
		}{Body: visibility.Reports(actor, reports)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{id}",
		Summary:     "Get report",
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Report `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Repo.GetReport(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if len(visibility.Reports(actor, []domain.Report{rep})) == 0 {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body domain.Report `json:"body"`
		}{Body: rep}, nil
	})
}

func registerStock(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-warehouse-stock",
		Method:      http.MethodGet,
		Path:        "/stock/warehouse",
		Summary:     "Warehouse stock",
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind" enum:"material,tool,"`
	}) (*struct {
		Body []domain.StockItem `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListWarehouseStock(ctx, input.Kind)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StockItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-brigade-stock",
		Method:      http.MethodGet,
		Path:        "/stock/brigades",
		Summary:     "Brigade holdings",
	}, func(ctx context.Context, input *struct {
		Brigade string `query:"brigade"`
		Kind    string `query:"kind" enum:"material,tool,"`
	}) (*struct {
		Body []domain.StockItem `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		brigade := input.Brigade
		if actor.Role == config.RoleBrigade {
			brigade = actor.ID
		}
		items, err := e.Repo.ListBrigadeStock(ctx, brigade, input.Kind)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StockItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transfer-stock",
		Method:      http.MethodPost,
		Path:        "/stock/transfer",
		Summary:     "Issue stock to a brigade",
	}, func(ctx context.Context, input *struct {
		Body TransferRequest `json:"body"`
	}) (*struct {
		Body domain.StockItem `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleWarehouse, config.RoleDispatcher)
		if authErr != nil {
			return nil, authErr
		}
		stock, err := e.TransferToBrigade(ctx, actor.ID, input.Body.Brigade, input.Body.Item, input.Body.Kind, input.Body.Quantity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StockItem `json:"body"`
		}{Body: stock}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "adjust-stock",
		Method:      http.MethodPost,
		Path:        "/stock/adjust",
		Summary:     "Adjust warehouse stock",
	}, func(ctx context.Context, input *struct {
		Body AdjustStockRequest `json:"body"`
	}) (*struct {
		Body domain.StockItem `json:"body"`
	}, error) {
		actor, authErr := requireRole(ctx, config.RoleWarehouse, config.RoleDispatcher)
		if authErr != nil {
			return nil, authErr
		}
		stock, err := e.AdjustWarehouseStock(ctx, actor.ID, input.Body.Item, input.Body.Kind, input.Body.Unit, input.Body.Delta)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StockItem `json:"body"`
		}{Body: stock}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stock-log",
		Method:      http.MethodGet,
		Path:        "/stock/log",
		Summary:     "Warehouse movement log",
	}, func(ctx context.Context, input *struct {
		Kind      string `query:"kind" enum:"material,tool,"`
		Operation string `query:"operation"`
		Brigade   string `query:"brigade"`
		Item      string `query:"item"`
		Limit     int    `query:"limit"`
	}) (*struct {
		Body []domain.WarehouseLogEntry `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, config.RoleWarehouse, config.RoleDispatcher, config.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		entries, err := e.Repo.ListWarehouseLog(ctx, repo.LogFilters{
			Kind:      input.Kind,
			Operation: input.Operation,
			Brigade:   input.Brigade,
			Item:      input.Item,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.WarehouseLogEntry `json:"body"`
		}{Body: entries}, nil
	})
}

func registerBrigades(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-brigades",
		Method:      http.MethodGet,
		Path:        "/brigades",
		Summary:     "List brigades",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Brigade `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		brigades, err := e.Repo.ListBrigades(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Brigade `json:"body"`
		}{Body: brigades}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-brigade-status",
		Method:      http.MethodPut,
		Path:        "/brigades/{id}/status",
		Summary:     "Set brigade status",
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body BrigadeStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Brigade `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		// Brigades may set their own status; dispatchers anyone's.
		if actor.Role == config.RoleBrigade && actor.ID != input.ID {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "brigades may only change their own status", nil)
		}
		if actor.Role != config.RoleBrigade && actor.Role != config.RoleDispatcher {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "role "+actor.Role+" may not change brigade status", nil)
		}
		b, err := e.SetBrigadeStatus(ctx, actor.ID, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Brigade `json:"body"`
		}{Body: b}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit events",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit"`
		Before     int64  `query:"before"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, config.RoleDispatcher); authErr != nil {
			return nil, authErr
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 100
		}
		events, err := e.Repo.LatestEventsFrom(ctx, limit, input.Before, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: events}, nil
	})
}

func registerAPIKeys(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, config.RoleDispatcher); authErr != nil {
			return nil, authErr
		}
		if input.Body.ActorID == "" || input.Body.Role == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id and role are required", nil)
		}
		raw := uuid.NewString() + uuid.NewString()
		key := domain.APIKey{
			ID:        uuid.NewString(),
			ActorID:   input.Body.ActorID,
			Role:      input.Body.Role,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(raw),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{ID: key.ID, Key: raw}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, config.RoleDispatcher); authErr != nil {
			return nil, authErr
		}
		keys, err := e.Repo.ListAPIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-api-key",
		Method:        http.MethodDelete,
		Path:          "/api-keys/{id}",
		Summary:       "Delete API key",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, config.RoleDispatcher); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Fieldline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}
