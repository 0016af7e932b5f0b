// Package memory provides the default in-memory persistence implementation.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

// Persistence implements persistence.Persistence with plain maps guarded by
// a read-write mutex. All reads and writes copy, so callers never share
// state with the store.
type Persistence struct {
	mu          sync.RWMutex
	workflows   map[string]*models.CapitalRaiseWorkflow
	instruments map[string]*models.TradingInstrument
	orders      map[string][]*models.Order // keyed by instrument id
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows:   make(map[string]*models.CapitalRaiseWorkflow),
		instruments: make(map[string]*models.TradingInstrument),
		orders:      make(map[string][]*models.Order),
	}
}

func (p *Persistence) Workflows(_ context.Context) ([]*models.CapitalRaiseWorkflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.CapitalRaiseWorkflow, 0, len(p.workflows))
	for _, workflow := range p.workflows {
		out = append(out, workflow.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.CapitalRaiseWorkflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, ok := p.workflows[id]
	if !ok {
		return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow.Clone(), nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.CapitalRaiseWorkflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.workflows[workflow.ID] = workflow.Clone()

	return nil
}

func (p *Persistence) Instruments(_ context.Context) ([]*models.TradingInstrument, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.TradingInstrument, 0, len(p.instruments))
	for _, instrument := range p.instruments {
		instrumentCopy := *instrument
		out = append(out, &instrumentCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (p *Persistence) InstrumentByID(_ context.Context, id string) (*models.TradingInstrument, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	instrument, ok := p.instruments[id]
	if !ok {
		return nil, persistence.NewStoreError("InstrumentByID", id, persistence.ErrInstrumentNotFound)
	}

	instrumentCopy := *instrument

	return &instrumentCopy, nil
}

func (p *Persistence) SaveInstrument(_ context.Context, instrument *models.TradingInstrument) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	instrumentCopy := *instrument
	p.instruments[instrument.ID] = &instrumentCopy

	return nil
}

func (p *Persistence) OrdersByInstrument(_ context.Context, instrumentID string) ([]*models.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	orders := p.orders[instrumentID]

	out := make([]*models.Order, len(orders))
	for i, order := range orders {
		orderCopy := *order
		out[i] = &orderCopy
	}

	return out, nil
}

func (p *Persistence) SaveOrder(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	orderCopy := *order

	for i, existing := range p.orders[order.InstrumentID] {
		if existing.ID == order.ID {
			p.orders[order.InstrumentID][i] = &orderCopy

			return nil
		}
	}

	p.orders[order.InstrumentID] = append(p.orders[order.InstrumentID], &orderCopy)

	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op; there is nothing to release.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
