// Package file provides file-based persistence rooted at a directory, with
// one JSON document per record.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements persistence.Persistence on the local file system.
// Layout: <root>/workflows/<id>.json, <root>/instruments/<id>.json,
// <root>/orders/<instrument-id>.json.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file store rooted at the given directory. A
// "file://" prefix is stripped so database-url style configuration works.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.CapitalRaiseWorkflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.listIDs("workflows")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.CapitalRaiseWorkflow, 0, len(ids))

	for _, id := range ids {
		workflow := &models.CapitalRaiseWorkflow{}
		if err := p.read(filepath.Join("workflows", id+".json"), workflow); err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.CapitalRaiseWorkflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow := &models.CapitalRaiseWorkflow{}

	err := p.read(filepath.Join("workflows", id+".json"), workflow)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.CapitalRaiseWorkflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(filepath.Join("workflows", workflow.ID+".json"), workflow)
}

func (p *Persistence) Instruments(_ context.Context) ([]*models.TradingInstrument, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.listIDs("instruments")
	if err != nil {
		return nil, err
	}

	instruments := make([]*models.TradingInstrument, 0, len(ids))

	for _, id := range ids {
		instrument := &models.TradingInstrument{}
		if err := p.read(filepath.Join("instruments", id+".json"), instrument); err != nil {
			return nil, fmt.Errorf("failed to load instrument %s: %w", id, err)
		}

		instruments = append(instruments, instrument)
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].CreatedAt.Before(instruments[j].CreatedAt)
	})

	return instruments, nil
}

func (p *Persistence) InstrumentByID(_ context.Context, id string) (*models.TradingInstrument, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	instrument := &models.TradingInstrument{}

	err := p.read(filepath.Join("instruments", id+".json"), instrument)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewStoreError("InstrumentByID", id, persistence.ErrInstrumentNotFound)
	}

	if err != nil {
		return nil, err
	}

	return instrument, nil
}

func (p *Persistence) SaveInstrument(_ context.Context, instrument *models.TradingInstrument) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(filepath.Join("instruments", instrument.ID+".json"), instrument)
}

func (p *Persistence) OrdersByInstrument(_ context.Context, instrumentID string) ([]*models.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var orders []*models.Order

	err := p.read(filepath.Join("orders", instrumentID+".json"), &orders)
	if errors.Is(err, os.ErrNotExist) {
		return []*models.Order{}, nil
	}

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (p *Persistence) SaveOrder(ctx context.Context, order *models.Order) error {
	orders, err := p.OrdersByInstrument(ctx, order.InstrumentID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	replaced := false

	for i, existing := range orders {
		if existing.ID == order.ID {
			orders[i] = order
			replaced = true

			break
		}
	}

	if !replaced {
		orders = append(orders, order)
	}

	return p.write(filepath.Join("orders", order.InstrumentID+".json"), orders)
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) listIDs(dir string) ([]string, error) {
	full := filepath.Join(p.root, dir)
	if _, err := os.Stat(full); os.IsNotExist(err) {
		return nil, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(full), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, name := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

func (p *Persistence) read(rel string, out any) error {
	data, err := os.ReadFile(filepath.Join(p.root, rel))
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

func (p *Persistence) write(rel string, in any) error {
	full := filepath.Join(p.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}

	return os.WriteFile(full, data, 0o644)
}
