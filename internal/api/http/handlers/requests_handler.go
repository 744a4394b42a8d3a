package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/api/dto"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/service"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// RequestsHandler manages request lifecycle endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /api/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	created, err := h.service.Create(c.UserContext(), actor, service.RequestCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Type:           req.Type,
		Channel:        req.Channel,
		RequestedAt:    req.RequestedAt,
		Level:          req.Level,
		AssigneeID:     req.AssigneeID,
		EstimatedHours: req.EstimatedHours,
		EstimatedDue:   req.EstimatedDue,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created, true)})
}

// List GET /api/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseRequestFilter(c)
	if err != nil {
		return err
	}
	reqs, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponses(reqs)})
}

// Get GET /api/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req, true)})
}

// History GET /api/requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": history})
}

// Transition POST /api/requests/:id/transition.
func (h *RequestsHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	to, err := parseStatus(req.Status)
	if err != nil {
		return err
	}
	updated, err := h.service.Transition(c.UserContext(), actor, c.Params("id"), service.TransitionInput{
		To:           to,
		Comment:      req.Comment,
		EvidenceLink: req.EvidenceLink,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Reopen POST /api/requests/:id/reopen.
func (h *RequestsHandler) Reopen(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReopenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewBadRequest("invalid payload")
		}
	}
	input := service.ReopenInput{Comment: req.Comment, EvidenceLink: req.EvidenceLink}
	if req.Status != nil {
		to, err := parseStatus(*req.Status)
		if err != nil {
			return err
		}
		input.To = &to
	}
	updated, err := h.service.Reopen(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Classify POST /api/requests/:id/classify.
func (h *RequestsHandler) Classify(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	updated, err := h.service.Classify(c.UserContext(), actor, c.Params("id"), service.ClassifyInput{
		Level:    req.Level,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Assign POST /api/requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	updated, err := h.service.Assign(c.UserContext(), actor, c.Params("id"), service.AssignInput{
		AssigneeID:     req.AssigneeID,
		EstimatedHours: req.EstimatedHours,
		EstimatedDue:   req.EstimatedDue,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Unassign POST /api/requests/:id/unassign.
func (h *RequestsHandler) Unassign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	updated, err := h.service.Unassign(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Feedback POST /api/requests/:id/feedback.
func (h *RequestsHandler) Feedback(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	updated, err := h.service.SubmitFeedback(c.UserContext(), actor, c.Params("id"), service.FeedbackInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

// Update PUT /api/requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	input := service.RequestUpdateInput{
		Comment:        req.Comment,
		EvidenceLink:   req.EvidenceLink,
		AssigneeID:     req.AssigneeID,
		EstimatedHours: req.EstimatedHours,
		EstimatedDue:   req.EstimatedDue,
	}
	if req.Status != nil {
		to, err := parseStatus(*req.Status)
		if err != nil {
			return err
		}
		input.Status = &to
	}
	updated, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, true)})
}

func parseStatus(raw string) (domain.RequestStatus, error) {
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return "", apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
	}
	return status, nil
}

func parseRequestFilter(c *fiber.Ctx) (service.RequestListFilter, error) {
	filter := service.RequestListFilter{Sort: c.Query("sort")}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := parseStatus(part)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if v := strings.TrimSpace(c.Query("department")); v != "" {
		filter.Department = &v
	}
	if v := c.Query("type"); v != "" {
		t, ok := domain.ParseRequestType(v)
		if !ok {
			return filter, apperrors.NewValidationError("unknown type", map[string]any{"type": v})
		}
		filter.Type = &t
	}
	if v := c.Query("channel"); v != "" {
		ch, ok := domain.ParseChannel(v)
		if !ok {
			return filter, apperrors.NewValidationError("unknown channel", map[string]any{"channel": v})
		}
		filter.Channel = &ch
	}
	if v := c.Query("level"); v != "" {
		level, err := parseRequiredInt("level", v)
		if err != nil {
			return filter, err
		}
		filter.Level = &level
	}
	if v := strings.TrimSpace(c.Query("assignee_id")); v != "" {
		filter.AssigneeID = &v
	}
	if v := strings.TrimSpace(c.Query("q")); v != "" {
		filter.SearchTerm = &v
	}
	var err error
	if filter.RequestedFrom, err = parseTime("requested_from", c.Query("requested_from")); err != nil {
		return filter, err
	}
	if filter.RequestedTo, err = parseTime("requested_to", c.Query("requested_to")); err != nil {
		return filter, err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	if pageSize > 200 {
		pageSize = 200
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}
