package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
	"github.com/rwcma/capitalab/pkg/persistence/memory"
)

func sampleWorkflow(id string, createdAt time.Time) *models.CapitalRaiseWorkflow {
	return &models.CapitalRaiseWorkflow{
		ID:             id,
		IssuerCompany:  "Acme " + id,
		InstrumentType: models.InstrumentTypeEquity,
		TargetAmount:   1000,
		Currency:       "RWF",
		CurrentStage:   models.StageCapitalRaiseIntent,
		Status:         models.WorkflowStatusActive,
		StageHistory: []*models.StageRecord{
			{Stage: models.StageCapitalRaiseIntent, EnteredAt: createdAt},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	ctx := context.Background()

	_, err := store.WorkflowByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflow := sampleWorkflow("wf-1", time.Now().UTC())
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.IssuerCompany, loaded.IssuerCompany)
	require.Len(t, loaded.StageHistory, 1)
}

func TestWorkflowSnapshotIsolation(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-1", time.Now().UTC())))

	first, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)

	// Mutating a snapshot must not leak into the store.
	first.CurrentStage = models.StageSettlement
	first.StageHistory[0].CompletedBy = "someone"

	second, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageCapitalRaiseIntent, second.CurrentStage)
	assert.Empty(t, second.StageHistory[0].CompletedBy)
}

func TestWorkflowsSortedByCreation(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-newer", base.Add(time.Hour))))
	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-older", base)))

	workflows, err := store.Workflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "wf-older", workflows[0].ID)
	assert.Equal(t, "wf-newer", workflows[1].ID)
}

func TestInstrumentsAndOrders(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	ctx := context.Background()

	_, err := store.InstrumentByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsInstrumentNotFound(err))

	instrument := &models.TradingInstrument{
		ID: "inst-1", WorkflowID: "wf-1", Symbol: "ACM",
		Type: models.InstrumentTypeEquity, Currency: "RWF", IssuePrice: 10,
		Status: models.InstrumentStatusPreTrading, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveInstrument(ctx, instrument))

	loaded, err := store.InstrumentByID(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "ACM", loaded.Symbol)

	order := &models.Order{
		ID: "ord-1", InstrumentID: "inst-1", UserID: "inv-1",
		Side: models.OrderSideBuy, Quantity: 100, Price: 10,
		Status: models.OrderStatusPending, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(ctx, order))

	// Saving the same order id replaces it instead of appending.
	order.Status = models.OrderStatusFilled
	require.NoError(t, store.SaveOrder(ctx, order))

	orders, err := store.OrdersByInstrument(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusFilled, orders[0].Status)

	empty, err := store.OrdersByInstrument(ctx, "inst-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHealthCheckAndClose(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	ctx := context.Background()

	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close(ctx))
}
