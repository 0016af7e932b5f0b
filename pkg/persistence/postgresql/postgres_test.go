package postgresql_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
	"github.com/rwcma/capitalab/pkg/persistence/postgresql"
)

func setupPostgres(t *testing.T) *postgresql.Persistence {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("capitalab_test"),
		tcpostgres.WithUsername("capitalab"),
		tcpostgres.WithPassword("capitalab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestPostgresWorkflowRoundTrip(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	_, err := store.WorkflowByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	now := time.Now().UTC().Truncate(time.Millisecond)

	workflow := &models.CapitalRaiseWorkflow{
		ID:             "wf-pg-1",
		IssuerCompany:  "Kigali Coffee Holdings",
		InstrumentType: models.InstrumentTypeEquity,
		TargetAmount:   5_000_000,
		Currency:       "RWF",
		CurrentStage:   models.StageDueDiligence,
		Status:         models.WorkflowStatusActive,
		Participants: models.ParticipantSet{
			Issuer: &models.Participant{UserID: "issuer-1", Role: models.RoleIssuer, Name: "KCH", IsActive: true},
		},
		StageHistory: []*models.StageRecord{
			{Stage: models.StageCapitalRaiseIntent, EnteredAt: now.Add(-time.Hour), CompletedAt: &now, CompletedBy: "issuer-1"},
			{Stage: models.StageDueDiligence, EnteredAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err := store.WorkflowByID(ctx, "wf-pg-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.IssuerCompany, loaded.IssuerCompany)
	assert.Equal(t, models.StageDueDiligence, loaded.CurrentStage)
	require.NotNil(t, loaded.Participants.Issuer)
	require.Len(t, loaded.StageHistory, 2)
	assert.Equal(t, "issuer-1", loaded.StageHistory[0].CompletedBy)

	// Upsert: saving again with a new stage overwrites the row.
	workflow.CurrentStage = models.StageProspectusBuilding
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	updated, err := store.WorkflowByID(ctx, "wf-pg-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageProspectusBuilding, updated.CurrentStage)

	workflows, err := store.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 1)
}

func TestPostgresInstrumentsAndOrders(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)

	instrument := &models.TradingInstrument{
		ID: "inst-pg-1", WorkflowID: "wf-pg-1", Symbol: "KCH",
		Type: models.InstrumentTypeEquity, Currency: "RWF", IssuePrice: 5,
		Status: models.InstrumentStatusPreTrading, CreatedAt: now,
	}
	require.NoError(t, store.SaveInstrument(ctx, instrument))

	loaded, err := store.InstrumentByID(ctx, "inst-pg-1")
	require.NoError(t, err)
	assert.Equal(t, "KCH", loaded.Symbol)

	_, err = store.InstrumentByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsInstrumentNotFound(err))

	order := &models.Order{
		ID: "ord-pg-1", InstrumentID: "inst-pg-1", UserID: "inv-1",
		Side: models.OrderSideBuy, Quantity: 100, Price: 5,
		Status: models.OrderStatusFilled, FilledPrice: 5.02, CreatedAt: now,
	}
	require.NoError(t, store.SaveOrder(ctx, order))

	orders, err := store.OrdersByInstrument(ctx, "inst-pg-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusFilled, orders[0].Status)
}
