package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/api/dto"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/service"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// WorklogsHandler handles the time ledger endpoints.
type WorklogsHandler struct {
	worklogs *service.WorklogService
	location *time.Location
}

// NewWorklogsHandler constructs handler. Plain dates in queries are read in loc.
func NewWorklogsHandler(worklogService *service.WorklogService, loc *time.Location) *WorklogsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &WorklogsHandler{worklogs: worklogService, location: loc}
}

// Record POST /api/requests/:id/worklogs.
func (h *WorklogsHandler) Record(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.WorklogRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	entry, err := h.worklogs.Record(c.UserContext(), actor, c.Params("id"), service.WorklogInput{
		Hours: req.Hours,
		Note:  req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": entry})
}

// ListByRequest GET /api/requests/:id/worklogs.
func (h *WorklogsHandler) ListByRequest(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	listing, err := h.worklogs.ListByTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listing})
}

// ListMine GET /api/me/worklogs.
func (h *WorklogsHandler) ListMine(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	from, err := parseTimeIn("from", c.Query("from"), h.location)
	if err != nil {
		return err
	}
	to, err := parseTimeIn("to", c.Query("to"), h.location)
	if err != nil {
		return err
	}
	listing, err := h.worklogs.ListMine(c.UserContext(), actor, from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listing})
}
