package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

func (p *Persistence) Workflows(ctx context.Context) ([]*models.CapitalRaiseWorkflow, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT data FROM capital_raise_workflows ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*models.CapitalRaiseWorkflow

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}

		workflow := &models.CapitalRaiseWorkflow{}
		if err := json.Unmarshal(data, workflow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow rows: %w", err)
	}

	return workflows, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.CapitalRaiseWorkflow, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM capital_raise_workflows WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query workflow %s: %w", id, err)
	}

	workflow := &models.CapitalRaiseWorkflow{}
	if err := json.Unmarshal(data, workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.CapitalRaiseWorkflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO capital_raise_workflows (id, current_stage, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			current_stage = EXCLUDED.current_stage,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.CurrentStage, workflow.Status, data, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) Instruments(ctx context.Context) ([]*models.TradingInstrument, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT data FROM trading_instruments ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*models.TradingInstrument

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan instrument row: %w", err)
		}

		instrument := &models.TradingInstrument{}
		if err := json.Unmarshal(data, instrument); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instrument: %w", err)
		}

		instruments = append(instruments, instrument)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instrument rows: %w", err)
	}

	return instruments, nil
}

func (p *Persistence) InstrumentByID(ctx context.Context, id string) (*models.TradingInstrument, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM trading_instruments WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("InstrumentByID", id, persistence.ErrInstrumentNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query instrument %s: %w", id, err)
	}

	instrument := &models.TradingInstrument{}
	if err := json.Unmarshal(data, instrument); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instrument %s: %w", id, err)
	}

	return instrument, nil
}

func (p *Persistence) SaveInstrument(ctx context.Context, instrument *models.TradingInstrument) error {
	data, err := json.Marshal(instrument)
	if err != nil {
		return fmt.Errorf("failed to marshal instrument %s: %w", instrument.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO trading_instruments (id, workflow_id, status, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data
	`, instrument.ID, instrument.WorkflowID, instrument.Status, data, instrument.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save instrument %s: %w", instrument.ID, err)
	}

	return nil
}

func (p *Persistence) OrdersByInstrument(ctx context.Context, instrumentID string) ([]*models.Order, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT data FROM instrument_orders WHERE instrument_id = $1 ORDER BY created_at ASC", instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for %s: %w", instrumentID, err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		order := &models.Order{}
		if err := json.Unmarshal(data, order); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}

	return orders, nil
}

func (p *Persistence) SaveOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", order.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO instrument_orders (id, instrument_id, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, order.ID, order.InstrumentID, data, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}

	return nil
}
