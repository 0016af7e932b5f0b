package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwcma/capitalab/pkg/channels/gochannel"
	"github.com/rwcma/capitalab/pkg/eventbus"
	"github.com/rwcma/capitalab/pkg/events"
	"github.com/rwcma/capitalab/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishAndHandleStageAdvanced(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.StageAdvanced, 1)

	err := bus.Handle(events.StageAdvancedEvent, func(_ context.Context, event any) error {
		advanced, ok := event.(*events.StageAdvanced)
		require.True(t, ok)
		received <- advanced

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := events.StageAdvanced{
		BaseEvent: events.NewBaseEvent(events.StageAdvancedEvent, "wf-1"),
		FromStage: models.StageCapitalRaiseIntent,
		ToStage:   models.StageIBAssignment,
		ActorID:   "issuer-1",
	}

	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, models.StageIBAssignment, got.ToStage)
		assert.Equal(t, "issuer-1", got.ActorID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stage advanced event")
	}
}

func TestUnhandledEventTypesAreAcked(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.WorkflowCreatedEvent, func(_ context.Context, _ any) error {
		handled <- struct{}{}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	// No handler is registered for graduation events; they are acked and
	// dropped without blocking the stream.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowGraduated{
		BaseEvent: events.NewBaseEvent(events.WorkflowGraduatedEvent, "wf-1"),
	}))

	require.NoError(t, bus.Publish(ctx, "wf-2", events.WorkflowCreated{
		BaseEvent:     events.NewBaseEvent(events.WorkflowCreatedEvent, "wf-2"),
		IssuerCompany: "Acme Mining",
	}))

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for created event")
	}
}

func TestGenerateID(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
