package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/rwcma/capitalab/pkg/engine"
	"github.com/rwcma/capitalab/pkg/market"
	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

type APIHandlers struct {
	engine      *engine.Engine
	market      *market.Service
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(
	eng *engine.Engine,
	marketService *market.Service,
	store persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:      eng,
		market:      marketService,
		persistence: store,
		validator:   validator,
	}
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req engine.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.CreateWorkflow(c.Context(), req)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	userID := c.Query("user_id")
	role := models.ParticipantRole(c.Query("role"))

	if userID != "" && role != "" {
		workflows, err := h.engine.WorkflowsByParticipant(c.Context(), userID, role)
		if err != nil {
			return handleEngineError(c, err)
		}

		return c.JSON(fiber.Map{"workflows": workflows, "total_count": len(workflows)})
	}

	workflows, err := h.engine.ListWorkflows(c.Context())
	if err != nil {
		return handleEngineError(c, err)
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		filtered := workflows[:0]

		for _, workflow := range workflows {
			if workflow.Status == status {
				filtered = append(filtered, workflow)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{"workflows": workflows, "total_count": len(workflows)})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) AdvanceStage(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req AdvanceStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.TargetStage.IsValid() {
		return badRequest(c, "Unknown target stage: "+req.TargetStage.String())
	}

	if err := h.engine.AdvanceStage(c.Context(), id, req.TargetStage, req.ActorID, req.Notes); err != nil {
		return handleEngineError(c, err)
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ExecuteAction(c fiber.Ctx) error {
	id := c.Params("id")
	action := c.Params("action")

	if id == "" || action == "" {
		return badRequest(c, "Workflow ID and action name are required")
	}

	var req ExecuteActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.engine.ExecuteAction(c.Context(), id, action, req.ActorID, req.Data); err != nil {
		return handleEngineError(c, err)
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": engine.ActionNames()})
}

func (h *APIHandlers) AssignParticipant(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req AssignParticipantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	participant := &models.Participant{
		UserID:      req.UserID,
		Role:        req.Role,
		Name:        req.Name,
		Institution: req.Institution,
		IsActive:    true,
	}

	if err := h.engine.AssignParticipant(c.Context(), id, req.Role, participant); err != nil {
		return handleEngineError(c, err)
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) AddDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req engine.AddDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.engine.AddDocument(c.Context(), id, req)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(document)
}

func (h *APIHandlers) ReviewDocument(c fiber.Ctx) error {
	id := c.Params("id")
	documentID := c.Params("documentId")

	if id == "" || documentID == "" {
		return badRequest(c, "Workflow ID and document ID are required")
	}

	var req ReviewDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.engine.ReviewDocument(c.Context(), id, documentID, req.Status, req.ActorID); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetChecklist(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id": workflow.ID,
		"checklist":   market.Checklist(workflow),
		"ready":       market.IsWorkflowReadyForTrading(workflow),
	})
}

func (h *APIHandlers) SuspendWorkflow(c fiber.Ctx) error {
	return h.changeStatus(c, h.engine.SuspendWorkflow)
}

func (h *APIHandlers) ResumeWorkflow(c fiber.Ctx) error {
	return h.changeStatus(c, h.engine.ResumeWorkflow)
}

func (h *APIHandlers) RejectWorkflow(c fiber.Ctx) error {
	return h.changeStatus(c, h.engine.RejectWorkflow)
}

func (h *APIHandlers) changeStatus(c fiber.Ctx, change func(ctx context.Context, workflowID, actorID, reason string) error) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req StatusChangeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := change(c.Context(), id, req.ActorID, req.Reason); err != nil {
		return handleEngineError(c, err)
	}

	workflow, err := h.engine.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetNotifications(c fiber.Ctx) error {
	userID := c.Query("user_id")
	role := models.ParticipantRole(c.Query("role"))

	if userID == "" || role == "" {
		return badRequest(c, "user_id and role query parameters are required")
	}

	notifications, err := h.engine.NotificationsForUser(c.Context(), userID, role)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications, "total_count": len(notifications)})
}

func (h *APIHandlers) MarkNotificationRead(c fiber.Ctx) error {
	id := c.Params("id")
	notificationID := c.Params("notificationId")

	if id == "" || notificationID == "" {
		return badRequest(c, "Workflow ID and notification ID are required")
	}

	if err := h.engine.MarkNotificationRead(c.Context(), id, notificationID); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GraduateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req GraduateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	instrument, err := h.market.CreateInstrumentFromWorkflow(c.Context(), id, req.IssuePrice)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instrument)
}

func (h *APIHandlers) GetInstruments(c fiber.Ctx) error {
	instruments, err := h.market.GetAllInstruments(c.Context())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"instruments": instruments, "total_count": len(instruments)})
}

func (h *APIHandlers) GetInstrument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instrument ID is required")
	}

	instrument, err := h.market.GetInstrument(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instrument)
}

func (h *APIHandlers) LaunchTrading(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instrument ID is required")
	}

	instrument, err := h.market.LaunchTrading(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instrument)
}

func (h *APIHandlers) PlaceOrder(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instrument ID is required")
	}

	var req PlaceOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	order, err := h.market.PlaceOrder(c.Context(), id, req.UserID, req.Side, req.Quantity, req.Price)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *APIHandlers) GetOrders(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instrument ID is required")
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	orders, err := h.market.OrdersByInstrument(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}

	return c.JSON(fiber.Map{"orders": orders, "total_count": len(orders)})
}

func (h *APIHandlers) GetMarketMakers(c fiber.Ctx) error {
	makers, err := h.market.EvaluateMarketMakers(c.Context())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"market_makers": makers, "total_count": len(makers)})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	message := "Capitalab API is healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		message = "Capitalab API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
