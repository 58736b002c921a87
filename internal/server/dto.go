package server

import "fieldline/internal/domain"

type LoginRequest struct {
	Login string `json:"login" example:"brigade1"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type CreateTaskRequest struct {
	Address         string  `json:"address" example:"Lenina 12"`
	Floors          int     `json:"floors,omitempty"`
	Entrances       int     `json:"entrances,omitempty"`
	WorkType        string  `json:"work_type" example:"house-wiring"`
	Description     string  `json:"description,omitempty"`
	AccessInfo      string  `json:"access_info,omitempty"`
	Urgent          bool    `json:"urgent,omitempty"`
	AssignedBrigade *string `json:"assigned_brigade,omitempty"`
	AssignedAdmin   *string `json:"assigned_admin,omitempty"`
}

type UpdateTaskRequest struct {
	Address         *string `json:"address,omitempty"`
	Floors          *int    `json:"floors,omitempty"`
	Entrances       *int    `json:"entrances,omitempty"`
	WorkType        *string `json:"work_type,omitempty"`
	Description     *string `json:"description,omitempty"`
	AccessInfo      *string `json:"access_info,omitempty"`
	Urgent          *bool   `json:"urgent,omitempty"`
	Status          *string `json:"status,omitempty"`
	AssignedBrigade *string `json:"assigned_brigade,omitempty"`
	AssignedAdmin   *string `json:"assigned_admin,omitempty"`
	ClearBrigade    bool    `json:"clear_brigade,omitempty"`
	ClearAdmin      bool    `json:"clear_admin,omitempty"`
}

type SubmitReportRequest struct {
	Comment   string                `json:"comment,omitempty"`
	Access    string                `json:"access,omitempty"`
	Photos    []string              `json:"photos,omitempty"`
	Materials []domain.MaterialLine `json:"materials,omitempty"`
}

type SubmitReportResponse struct {
	Report   domain.Report `json:"report"`
	Complete bool          `json:"complete"`
	Status   string        `json:"status"`
}

type TransferRequest struct {
	Brigade  string  `json:"brigade" example:"brigade1"`
	Item     string  `json:"item" example:"Cable VOK 4"`
	Kind     string  `json:"kind" enum:"material,tool"`
	Quantity float64 `json:"quantity" example:"50"`
}

type AdjustStockRequest struct {
	Item  string  `json:"item"`
	Kind  string  `json:"kind" enum:"material,tool"`
	Unit  string  `json:"unit,omitempty"`
	Delta float64 `json:"delta"`
}

type BrigadeStatusRequest struct {
	Status string `json:"status" example:"on duty"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
}

type CreateAPIKeyResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}
