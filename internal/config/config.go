package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Known role identifiers in the user directory.
const (
	RoleDispatcher = "dispatcher"
	RoleAdmin      = "admin"
	RoleBrigade    = "brigade"
	RoleWarehouse  = "warehouse"
)

// Config models fieldline.yml.
type Config struct {
	WorkTypes       []string `yaml:"work_types"`
	TaskStatuses    []string `yaml:"task_statuses"`
	BrigadeStatuses []string `yaml:"brigade_statuses"`
	Catalog         struct {
		Materials map[string]CatalogItem `yaml:"materials"`
		Tools     map[string]CatalogItem `yaml:"tools"`
	} `yaml:"catalog"`
	Directory map[string]DirectoryUser `yaml:"directory"`
	Webhooks  []WebhookConfig          `yaml:"webhooks"`
}

// CatalogItem describes one warehouse catalog entry and its opening stock.
type CatalogItem struct {
	Unit         string  `yaml:"unit"`
	OpeningStock float64 `yaml:"opening_stock"`
}

// DirectoryUser is one entry of the user directory keyed by login.
type DirectoryUser struct {
	Role  string `yaml:"role"`
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with fl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to the built-in defaults when no config file
// exists in the workspace.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.WorkTypes) == 0 {
		return fmt.Errorf("config.work_types is required")
	}
	for _, wt := range c.WorkTypes {
		if wt == "" {
			return fmt.Errorf("config.work_types contains an empty entry")
		}
	}
	if len(c.BrigadeStatuses) == 0 {
		return fmt.Errorf("config.brigade_statuses is required")
	}
	for login, user := range c.Directory {
		if login == "" {
			return fmt.Errorf("config.directory contains an empty login")
		}
		switch user.Role {
		case RoleDispatcher, RoleAdmin, RoleBrigade, RoleWarehouse:
		default:
			return fmt.Errorf("directory user %s has unknown role %q", login, user.Role)
		}
		if user.Name == "" {
			return fmt.Errorf("directory user %s has no name", login)
		}
	}
	for item, entry := range c.Catalog.Materials {
		if item == "" {
			return fmt.Errorf("config.catalog.materials contains an empty item name")
		}
		if entry.OpeningStock < 0 {
			return fmt.Errorf("material %s has negative opening stock", item)
		}
	}
	for item, entry := range c.Catalog.Tools {
		if item == "" {
			return fmt.Errorf("config.catalog.tools contains an empty item name")
		}
		if entry.OpeningStock < 0 {
			return fmt.Errorf("tool %s has negative opening stock", item)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has no url", i)
		}
	}
	return nil
}

// WorkTypeKnown reports whether the work type is in the configured list.
func (c *Config) WorkTypeKnown(workType string) bool {
	for _, wt := range c.WorkTypes {
		if wt == workType {
			return true
		}
	}
	return false
}

// BrigadeStatusKnown reports whether the status is in the configured list.
func (c *Config) BrigadeStatusKnown(status string) bool {
	for _, s := range c.BrigadeStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "fieldline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `work_types:
  - aerial-line
  - jumper
  - house-wiring
  - turnkey-house
  - drilling
  - welding

task_statuses:
  - new
  - in_progress
  - completed
  - postponed
  - problem_site

brigade_statuses:
  - on duty
  - sick leave
  - business trip
  - vacation
  - leaving

catalog:
  materials:
    "Cable VOK 4":
      unit: m
      opening_stock: 1000
    "BO/16":
      unit: pcs
      opening_stock: 500
    "Putty":
      unit: kg
      opening_stock: 200
  tools:
    "Corded drill SN001":
      unit: pcs
      opening_stock: 1
    "Cordless drill SN002":
      unit: pcs
      opening_stock: 1
    "Battery 6Ah SN003":
      unit: pcs
      opening_stock: 5

directory:
  dispatcher:
    role: dispatcher
    name: Dispatcher
    phone: "+79160000001"
  admin1:
    role: admin
    name: Field Admin 1
    phone: "+79160000002"
  admin2:
    role: admin
    name: Field Admin 2
    phone: "+79160000003"
  brigade1:
    role: brigade
    name: Brigade 1
    phone: "+79160000010"
  brigade2:
    role: brigade
    name: Brigade 2
    phone: "+79160000011"
  brigade3:
    role: brigade
    name: Brigade 3
    phone: "+79160000012"
  warehouse:
    role: warehouse
    name: Warehouse Keeper
    phone: "+79160000020"
`
