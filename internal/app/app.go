// Package app opens a workspace: config, database, migrations and seed data
// in one call, shared by the CLI and the server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldline/internal/config"
	"fieldline/internal/db"
	"fieldline/internal/domain"
	"fieldline/internal/engine"
	"fieldline/internal/migrate"
	"fieldline/internal/repo"
)

type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Engine    *engine.Engine
}

// Open loads the workspace config (falling back to built-in defaults when no
// config file exists), opens the database, runs migrations and seeds the
// brigade directory and opening stock.
func Open(ctx context.Context, workspace string) (*App, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	d, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(d); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a := &App{
		Workspace: workspace,
		Config:    cfg,
		DB:        d,
		Repo:      repo.Repo{DB: d},
		Engine:    engine.New(d, cfg),
	}
	if err := a.seed(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	return a, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// seed mirrors the config directory and catalog into the database. Brigades
// get a row per directory entry; catalog items get their opening stock, but
// only on first sight so later adjustments survive restarts.
func (a *App) seed(ctx context.Context) error {
	for login, u := range a.Config.Directory {
		if u.Role != config.RoleBrigade {
			continue
		}
		existing, err := a.Repo.GetBrigade(ctx, login)
		status := "on duty"
		if err == nil {
			status = existing.Status
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		b := domain.Brigade{ID: login, Name: u.Name, Phone: u.Phone, Status: status, Login: login}
		if err := a.Repo.UpsertBrigade(ctx, b); err != nil {
			return err
		}
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	seedKind := func(items map[string]config.CatalogItem, kind string) error {
		for name, item := range items {
			_, err := a.Repo.GetWarehouseStockTx(ctx, tx, name, kind)
			if err == nil {
				continue
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			s := domain.StockItem{Item: name, Kind: kind, Unit: item.Unit, Quantity: item.OpeningStock}
			if err := a.Repo.UpsertWarehouseStock(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	}
	if err := seedKind(a.Config.Catalog.Materials, domain.StockMaterial); err != nil {
		return err
	}
	if err := seedKind(a.Config.Catalog.Tools, domain.StockTool); err != nil {
		return err
	}
	return tx.Commit()
}
