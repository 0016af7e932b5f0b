package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/rwcma/capitalab/pkg/eventbus"
	"github.com/rwcma/capitalab/pkg/events"
	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

var (
	// ErrNotReadyForTrading indicates the workflow failed the fulfillment
	// checklist.
	ErrNotReadyForTrading = errors.New("workflow has not fulfilled the graduation checklist")

	// ErrInstrumentNotTrading indicates an order against an instrument that
	// is not active on the board.
	ErrInstrumentNotTrading = errors.New("instrument is not trading")
)

const (
	maxSymbolLength = 4
	spreadFraction  = 0.005

	// marketMakerThreshold is the completed-workflow count at which a broker
	// earns market maker status.
	marketMakerThreshold = 3
)

// Service mints instruments from graduated workflows and runs the simulated
// board. It shares the engine's store but owns the instrument and order
// tables.
type Service struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewService creates a market service over the given store. The publisher
// may be nil.
func NewService(store persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Service {
	return &Service{persistence: store, publisher: publisher, logger: logger}
}

// CreateInstrumentFromWorkflow graduates a workflow into a pre-trading
// instrument. The workflow must pass the fulfillment checklist. Calling it
// again for the same workflow returns the existing instrument unchanged.
// A zero issuePrice derives the price from the deal terms.
func (s *Service) CreateInstrumentFromWorkflow(ctx context.Context, workflowID string, issuePrice float64) (*models.TradingInstrument, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !IsWorkflowReadyForTrading(workflow) {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNotReadyForTrading)
	}

	existing, err := s.instrumentForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	if issuePrice <= 0 {
		issuePrice = deriveIssuePrice(workflow)
	}

	instrument := &models.TradingInstrument{
		ID:            uuid.New().String(),
		WorkflowID:    workflow.ID,
		Symbol:        SymbolForCompany(workflow.IssuerCompany),
		ISIN:          workflow.VirtualISIN,
		CompanyName:   workflow.IssuerCompany,
		Type:          workflow.InstrumentType,
		Currency:      workflow.Currency,
		IssuePrice:    issuePrice,
		SharesOffered: workflow.SharesOffered,
		Status:        models.InstrumentStatusPreTrading,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.persistence.SaveInstrument(ctx, instrument); err != nil {
		return nil, fmt.Errorf("failed to save instrument: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow graduated to instrument",
		"workflow_id", workflow.ID, "instrument_id", instrument.ID, "symbol", instrument.Symbol)

	s.publish(ctx, workflow.ID, events.WorkflowGraduated{
		BaseEvent:    events.NewBaseEvent(events.WorkflowGraduatedEvent, workflow.ID),
		InstrumentID: instrument.ID,
		Symbol:       instrument.Symbol,
		IssuePrice:   instrument.IssuePrice,
	})

	return instrument, nil
}

// LaunchTrading flips a pre-trading instrument to active and opens a quote
// around the issue price. Launching an already active instrument is a no-op.
func (s *Service) LaunchTrading(ctx context.Context, instrumentID string) (*models.TradingInstrument, error) {
	instrument, err := s.persistence.InstrumentByID(ctx, instrumentID)
	if err != nil {
		return nil, err
	}

	if instrument.Status == models.InstrumentStatusActive {
		return instrument, nil
	}

	now := time.Now().UTC()

	instrument.Status = models.InstrumentStatusActive
	instrument.BidPrice = instrument.IssuePrice * (1 - spreadFraction)
	instrument.AskPrice = instrument.IssuePrice * (1 + spreadFraction)
	instrument.LastPrice = instrument.IssuePrice
	instrument.ListedAt = &now

	if err := s.persistence.SaveInstrument(ctx, instrument); err != nil {
		return nil, fmt.Errorf("failed to save instrument %s: %w", instrumentID, err)
	}

	s.publish(ctx, instrument.WorkflowID, events.TradingLaunched{
		BaseEvent:    events.NewBaseEvent(events.TradingLaunchedEvent, instrument.WorkflowID),
		InstrumentID: instrument.ID,
		Symbol:       instrument.Symbol,
		BidPrice:     instrument.BidPrice,
		AskPrice:     instrument.AskPrice,
	})

	return instrument, nil
}

// PlaceOrder records a simulated order against an active instrument. Orders
// fill immediately at the quoted side of the spread; there is no book.
func (s *Service) PlaceOrder(ctx context.Context, instrumentID, userID string, side models.OrderSide, quantity int64, price float64) (*models.Order, error) {
	instrument, err := s.persistence.InstrumentByID(ctx, instrumentID)
	if err != nil {
		return nil, err
	}

	if instrument.Status != models.InstrumentStatusActive {
		return nil, fmt.Errorf("instrument %s: %w", instrumentID, ErrInstrumentNotTrading)
	}

	filledPrice := instrument.AskPrice
	if side == models.OrderSideSell {
		filledPrice = instrument.BidPrice
	}

	order := &models.Order{
		ID:           uuid.New().String(),
		InstrumentID: instrumentID,
		UserID:       userID,
		Side:         side,
		Quantity:     quantity,
		Price:        price,
		Status:       models.OrderStatusFilled,
		FilledPrice:  filledPrice,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.persistence.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	instrument.LastPrice = filledPrice
	if err := s.persistence.SaveInstrument(ctx, instrument); err != nil {
		return nil, fmt.Errorf("failed to update instrument %s: %w", instrumentID, err)
	}

	return order, nil
}

// GetInstrument returns one instrument.
func (s *Service) GetInstrument(ctx context.Context, instrumentID string) (*models.TradingInstrument, error) {
	return s.persistence.InstrumentByID(ctx, instrumentID)
}

// GetAllInstruments returns every instrument on the board, oldest first.
func (s *Service) GetAllInstruments(ctx context.Context) ([]*models.TradingInstrument, error) {
	return s.persistence.Instruments(ctx)
}

// OrdersByInstrument returns the simulated order history of an instrument.
func (s *Service) OrdersByInstrument(ctx context.Context, instrumentID string) ([]*models.Order, error) {
	return s.persistence.OrdersByInstrument(ctx, instrumentID)
}

// EvaluateMarketMakers grants market maker status to brokers who have seen
// at least three workflows through to completion. The evaluation is
// recomputed from scratch on every call.
func (s *Service) EvaluateMarketMakers(ctx context.Context) ([]*models.MarketMaker, error) {
	workflows, err := s.persistence.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	type brokerTally struct {
		institution string
		completed   int
	}

	tallies := make(map[string]*brokerTally)
	order := []string{}

	for _, workflow := range workflows {
		if workflow.Status != models.WorkflowStatusCompleted {
			continue
		}

		for _, broker := range workflow.Participants.Brokers {
			if broker == nil || broker.UserID == "" {
				continue
			}

			tally, ok := tallies[broker.UserID]
			if !ok {
				tally = &brokerTally{institution: broker.Institution}
				tallies[broker.UserID] = tally
				order = append(order, broker.UserID)
			}

			tally.completed++
		}
	}

	now := time.Now().UTC()

	var granted []*models.MarketMaker

	for _, userID := range order {
		tally := tallies[userID]
		qualifies := tally.completed >= marketMakerThreshold

		s.publish(ctx, "", events.MarketMakerEvaluation{
			BaseEvent:          events.NewBaseEvent(events.MarketMakerEvaluationEvent, ""),
			UserID:             userID,
			CompletedWorkflows: tally.completed,
			Granted:            qualifies,
		})

		if qualifies {
			granted = append(granted, &models.MarketMaker{
				UserID:             userID,
				Institution:        tally.institution,
				CompletedWorkflows: tally.completed,
				GrantedAt:          now,
			})
		}
	}

	return granted, nil
}

func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish market event",
			"event_type", event.GetType(), "error", err)
	}
}

func (s *Service) instrumentForWorkflow(ctx context.Context, workflowID string) (*models.TradingInstrument, error) {
	instruments, err := s.persistence.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	for _, instrument := range instruments {
		if instrument.WorkflowID == workflowID {
			return instrument, nil
		}
	}

	return nil, nil
}

// deriveIssuePrice computes the default issue price from the deal terms,
// falling back to a unit price when no share count was filed.
func deriveIssuePrice(workflow *models.CapitalRaiseWorkflow) float64 {
	if workflow.SharesOffered > 0 {
		return workflow.TargetAmount / float64(workflow.SharesOffered)
	}

	return 1.0
}

// SymbolForCompany derives a ticker from the company name: the uppercased
// initials of its words, capped at four characters. "Kigali Coffee
// Holdings" becomes KCH.
func SymbolForCompany(companyName string) string {
	var symbol strings.Builder

	for _, word := range strings.Fields(companyName) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				symbol.WriteRune(unicode.ToUpper(r))

				break
			}
		}

		if symbol.Len() >= maxSymbolLength {
			break
		}
	}

	if symbol.Len() == 0 {
		return "UNKN"
	}

	if symbol.Len() == 1 {
		cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}

			return -1
		}, companyName))

		if len(cleaned) > maxSymbolLength {
			cleaned = cleaned[:maxSymbolLength]
		}

		return cleaned
	}

	return symbol.String()
}
