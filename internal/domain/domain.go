package domain

// Task statuses. The set is also configurable (config.TaskStatuses) so
// deployments can rename display labels, but the engine only reasons about
// these canonical values.
const (
	StatusNew         = "new"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
	StatusPostponed   = "postponed"
	StatusProblemSite = "problem_site"
)

// Stock kinds in the warehouse.
const (
	StockMaterial = "material"
	StockTool     = "tool"
)

// Warehouse log operations.
const (
	OpIssueToBrigade   = "issue to brigade"
	OpFieldConsumption = "field consumption"
	OpAdjustment       = "adjustment"
)

type Task struct {
	ID              int64   `json:"id"`
	Address         string  `json:"address"`
	Floors          int     `json:"floors"`
	Entrances       int     `json:"entrances"`
	WorkType        string  `json:"work_type"`
	Description     string  `json:"description,omitempty"`
	AccessInfo      string  `json:"access_info,omitempty"`
	Urgent          bool    `json:"urgent"`
	Status          string  `json:"status" enum:"new,in_progress,completed,postponed,problem_site"`
	AssignedBrigade *string `json:"assigned_brigade,omitempty"`
	AssignedAdmin   *string `json:"assigned_admin,omitempty"`
	CreatedBy       string  `json:"created_by"`
	CreatedDate     string  `json:"created_date" format:"date-time"`
	AssignedDate    *string `json:"assigned_date,omitempty" format:"date-time"`
	CompletedDate   *string `json:"completed_date,omitempty" format:"date-time"`
}

// MaterialLine is one material usage entry on a report.
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
	CreatedDate string         `json:"created_date" format:"date-time"`
}

type Brigade struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
	Login  string `json:"login"`
}

// StockItem is one warehouse or brigade holding row. Brigade is empty for
// central warehouse stock.
type StockItem struct {
	Item     string  `json:"item"`
	Kind     string  `json:"kind" enum:"material,tool"`
	Unit     string  `json:"unit,omitempty"`
	Quantity float64 `json:"quantity"`
	Brigade  string  `json:"brigade,omitempty"`
}

type WarehouseLogEntry struct {
	ID        int64   `json:"id"`
	Kind      string  `json:"kind" enum:"material,tool"`
	Operation string  `json:"operation"`
	Item      string  `json:"item"`
	Quantity  float64 `json:"quantity"`
	Brigade   *string `json:"brigade,omitempty"`
	Date      string  `json:"date" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
