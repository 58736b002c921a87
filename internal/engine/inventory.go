package engine

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"fieldline/internal/domain"
	"fieldline/internal/events"
	"fieldline/internal/repo"
)

// TransferToBrigade moves quantity of an item from the central warehouse to a
// brigade. The warehouse never goes negative: the decrement is clamped at
// zero, while the brigade credit and the log entry carry the quantity that
// was asked for.
func (e *Engine) TransferToBrigade(ctx context.Context, actorID, brigade, item, kind string, quantity float64) (domain.StockItem, error) {
	if quantity <= 0 {
		return domain.StockItem{}, ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if kind != domain.StockMaterial && kind != domain.StockTool {
		return domain.StockItem{}, ValidationError{Field: "kind", Reason: "must be material or tool"}
	}
	if brigade == "" {
		return domain.StockItem{}, ValidationError{Field: "brigade", Reason: "must not be empty"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockItem{}, err
	}
	defer tx.Rollback()

	stock, err := e.Repo.GetWarehouseStockTx(ctx, tx, item, kind)
	if err != nil {
		return domain.StockItem{}, err
	}
	remaining := stock.Quantity - quantity
	if remaining < 0 {
		remaining = 0
	}
	stock.Quantity = remaining
	if err := e.Repo.UpsertWarehouseStock(ctx, tx, stock); err != nil {
		return domain.StockItem{}, err
	}
	if err := e.Repo.AddBrigadeStock(ctx, tx, brigade, item, kind, quantity); err != nil {
		return domain.StockItem{}, err
	}
	now := e.now()
	entry := domain.WarehouseLogEntry{
		Kind:      kind,
		Operation: domain.OpIssueToBrigade,
		Item:      item,
		Quantity:  quantity,
		Brigade:   &brigade,
		Date:      now,
	}
	if err := e.Repo.AppendWarehouseLog(ctx, tx, entry); err != nil {
		return domain.StockItem{}, err
	}
	err = e.Events.Append(ctx, tx, "stock.issued", "stock", item, actorID, events.EventPayload{
		"brigade":  brigade,
		"kind":     kind,
		"quantity": quantity,
	})
	if err != nil {
		return domain.StockItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StockItem{}, err
	}
	return stock, nil
}

// AdjustWarehouseStock adds delta to an item's warehouse quantity, creating
// the row on first receipt. Decrements clamp at zero.
func (e *Engine) AdjustWarehouseStock(ctx context.Context, actorID, item, kind, unit string, delta float64) (domain.StockItem, error) {
	if kind != domain.StockMaterial && kind != domain.StockTool {
		return domain.StockItem{}, ValidationError{Field: "kind", Reason: "must be material or tool"}
	}
	if delta == 0 {
		return domain.StockItem{}, ValidationError{Field: "quantity", Reason: "must not be zero"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockItem{}, err
	}
	defer tx.Rollback()

	stock, err := e.Repo.GetWarehouseStockTx(ctx, tx, item, kind)
	if errors.Is(err, repo.ErrNotFound) {
		stock = domain.StockItem{Item: item, Kind: kind, Unit: unit}
	} else if err != nil {
		return domain.StockItem{}, err
	}
	if unit != "" {
		stock.Unit = unit
	}
	stock.Quantity += delta
	if stock.Quantity < 0 {
		stock.Quantity = 0
	}
	if err := e.Repo.UpsertWarehouseStock(ctx, tx, stock); err != nil {
		return domain.StockItem{}, err
	}
	entry := domain.WarehouseLogEntry{
		Kind:      kind,
		Operation: domain.OpAdjustment,
		Item:      item,
		Quantity:  delta,
		Date:      e.now(),
	}
	if err := e.Repo.AppendWarehouseLog(ctx, tx, entry); err != nil {
		return domain.StockItem{}, err
	}
	err = e.Events.Append(ctx, tx, "stock.adjusted", "stock", item, actorID, events.EventPayload{
		"kind":  kind,
		"delta": delta,
	})
	if err != nil {
		return domain.StockItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StockItem{}, err
	}
	return stock, nil
}

// recordConsumption decrements a brigade's material holdings for the report's
// material lines and writes a field consumption log entry and a
// stock.consumed event per line. Unknown holdings count as zero and stay at
// zero.
func (e *Engine) recordConsumption(ctx context.Context, tx *sql.Tx, brigade string, lines []domain.MaterialLine, date string) error {
	for _, line := range lines {
		held, err := e.Repo.GetBrigadeStockTx(ctx, tx, brigade, line.Name, domain.StockMaterial)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		remaining := held.Quantity - line.Quantity
		if remaining < 0 {
			remaining = 0
		}
		if err := e.Repo.SetBrigadeStock(ctx, tx, brigade, line.Name, domain.StockMaterial, remaining); err != nil {
			return err
		}
		entry := domain.WarehouseLogEntry{
			Kind:      domain.StockMaterial,
			Operation: domain.OpFieldConsumption,
			Item:      line.Name,
			Quantity:  line.Quantity,
			Brigade:   &brigade,
			Date:      date,
		}
		if err := e.Repo.AppendWarehouseLog(ctx, tx, entry); err != nil {
			return err
		}
		err = e.Events.Append(ctx, tx, "stock.consumed", "stock", line.Name, brigade, events.EventPayload{
			"brigade":  brigade,
			"quantity": line.Quantity,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
