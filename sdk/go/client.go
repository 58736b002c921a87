// Package fieldlinesdk is a minimal typed client for the Fieldline HTTP API.
package fieldlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Task struct {
	ID              int64   `json:"id"`
	Address         string  `json:"address"`
	Floors          int     `json:"floors"`
	Entrances       int     `json:"entrances"`
	WorkType        string  `json:"work_type"`
	Description     string  `json:"description,omitempty"`
	AccessInfo      string  `json:"access_info,omitempty"`
	Urgent          bool    `json:"urgent"`
	Status          string  `json:"status"`
	AssignedBrigade *string `json:"assigned_brigade,omitempty"`
	AssignedAdmin   *string `json:"assigned_admin,omitempty"`
	CreatedBy       string  `json:"created_by"`
	CreatedDate     string  `json:"created_date"`
	AssignedDate    *string `json:"assigned_date,omitempty"`
	CompletedDate   *string `json:"completed_date,omitempty"`
}

type MaterialLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type Report struct {
	ID          int64          `json:"id"`
	TaskID      int64          `json:"task_id"`
	Brigade     string         `json:"brigade"`
	Comment     string         `json:"comment,omitempty"`
	Access      string         `json:"access,omitempty"`
	Photos      []string       `json:"photos"`
	Materials   []MaterialLine `json:"materials"`
	CreatedDate string         `json:"created_date"`
}

type SubmitReportResult struct {
	Report   Report `json:"report"`
	Complete bool   `json:"complete"`
	Status   string `json:"status"`
}

type StockItem struct {
	Item     string  `json:"item"`
	Kind     string  `json:"kind"`
	Unit     string  `json:"unit,omitempty"`
	Quantity float64 `json:"quantity"`
	Brigade  string  `json:"brigade,omitempty"`
}

type LogEntry struct {
	ID        int64   `json:"id"`
	Kind      string  `json:"kind"`
	Operation string  `json:"operation"`
	Item      string  `json:"item"`
	Quantity  float64 `json:"quantity"`
	Brigade   *string `json:"brigade,omitempty"`
	Date      string  `json:"date"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges a directory login for a bearer token and stores it on the
// client.
func (c *Client) Login(ctx context.Context, login string) (string, error) {
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	err := c.do(ctx, http.MethodPost, "v0/auth/login", map[string]any{"login": login}, &resp)
	if err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Role, nil
}

func (c *Client) CreateTask(ctx context.Context, body map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/tasks/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "v0/tasks", nil, &resp)
	return resp, err
}

func (c *Client) MapTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "v0/tasks/map", nil, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("v0/tasks/%d", id), patch, &resp)
	return resp, err
}

func (c *Client) SubmitReport(ctx context.Context, taskID int64, comment, access string, photos []string, materials []MaterialLine) (SubmitReportResult, error) {
	body := map[string]any{
		"comment":   comment,
		"access":    access,
		"photos":    photos,
		"materials": materials,
	}
	var resp SubmitReportResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/tasks/%d/reports", taskID), body, &resp)
	return resp, err
}

func (c *Client) ListReports(ctx context.Context, taskID int64) ([]Report, error) {
	endpoint := "v0/reports"
	if taskID > 0 {
		endpoint = fmt.Sprintf("v0/reports?task_id=%d", taskID)
	}
	var resp []Report
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) WarehouseStock(ctx context.Context) ([]StockItem, error) {
	var resp []StockItem
	err := c.do(ctx, http.MethodGet, "v0/stock/warehouse", nil, &resp)
	return resp, err
}

func (c *Client) BrigadeStock(ctx context.Context, brigade string) ([]StockItem, error) {
	endpoint := "v0/stock/brigades"
	if brigade != "" {
		endpoint += "?brigade=" + brigade
	}
	var resp []StockItem
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) Transfer(ctx context.Context, brigade, item, kind string, quantity float64) (StockItem, error) {
	body := map[string]any{
		"brigade":  brigade,
		"item":     item,
		"kind":     kind,
		"quantity": quantity,
	}
	var resp StockItem
	err := c.do(ctx, http.MethodPost, "v0/stock/transfer", body, &resp)
	return resp, err
}

func (c *Client) StockLog(ctx context.Context) ([]LogEntry, error) {
	var resp []LogEntry
	err := c.do(ctx, http.MethodGet, "v0/stock/log", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
