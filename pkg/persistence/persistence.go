// Package persistence provides the data storage abstraction for workflows,
// instruments, and orders.
package persistence

import (
	"context"

	"github.com/rwcma/capitalab/pkg/models"
)

// Persistence is the storage contract shared by the in-memory, file, and
// PostgreSQL backends. Implementations return snapshots; callers never hold
// references into a store's internal state. Serialization of concurrent
// writers against one aggregate is the engine's job, not the store's.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.CapitalRaiseWorkflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.CapitalRaiseWorkflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.CapitalRaiseWorkflow) error

	Instruments(ctx context.Context) ([]*models.TradingInstrument, error)
	InstrumentByID(ctx context.Context, id string) (*models.TradingInstrument, error)
	SaveInstrument(ctx context.Context, instrument *models.TradingInstrument) error

	OrdersByInstrument(ctx context.Context, instrumentID string) ([]*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
