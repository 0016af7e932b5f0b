package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
	"github.com/rwcma/capitalab/pkg/persistence/file"
)

func sampleWorkflow(id string, createdAt time.Time) *models.CapitalRaiseWorkflow {
	return &models.CapitalRaiseWorkflow{
		ID:             id,
		IssuerCompany:  "Acme " + id,
		InstrumentType: models.InstrumentTypeBond,
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

func TestFileWorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	_, err := store.WorkflowByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflow := sampleWorkflow("wf-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.IssuerCompany, loaded.IssuerCompany)
	assert.Equal(t, workflow.CurrentStage, loaded.CurrentStage)
	require.Len(t, loaded.StageHistory, 1)
}

func TestFileURLPrefixStripped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := file.NewPersistence("file://" + dir)
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-1", time.Now().UTC())))

	_, err := os.Stat(filepath.Join(dir, "workflows", "wf-1.json"))
	require.NoError(t, err)
}

func TestFileWorkflowsListing(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	// Listing an empty store works before any directory exists.
	empty, err := store.Workflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-b", base.Add(time.Hour))))
	require.NoError(t, store.SaveWorkflow(ctx, sampleWorkflow("wf-a", base)))

	workflows, err := store.Workflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "wf-a", workflows[0].ID)
	assert.Equal(t, "wf-b", workflows[1].ID)
}

func TestFileOrders(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	orders, err := store.OrdersByInstrument(ctx, "inst-1")
	require.NoError(t, err)
	assert.Empty(t, orders)

	first := &models.Order{
		ID: "ord-1", InstrumentID: "inst-1", UserID: "inv-1",
		Side: models.OrderSideBuy, Quantity: 10, Price: 5,
		Status: models.OrderStatusPending, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(ctx, first))

	second := &models.Order{
		ID: "ord-2", InstrumentID: "inst-1", UserID: "inv-2",
		Side: models.OrderSideSell, Quantity: 4, Price: 5,
		Status: models.OrderStatusFilled, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(ctx, second))

	// Re-saving an existing id updates in place.
	first.Status = models.OrderStatusRejected
	require.NoError(t, store.SaveOrder(ctx, first))

	orders, err = store.OrdersByInstrument(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderStatusRejected, orders[0].Status)
}

func TestFileHealthCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := file.NewPersistence(dir)
	require.NoError(t, store.HealthCheck(context.Background()))

	gone := file.NewPersistence(filepath.Join(dir, "does-not-exist"))
	require.Error(t, gone.HealthCheck(context.Background()))
}
