package httpapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/repository"
	"routine-coach/internal/service"
	"routine-coach/internal/session"
)

// Handlers contains the HTTP request handlers.
type Handlers struct {
	svc Services
}

type statusRequest struct {
	Status        model.Status `json:"status"`
	Justification string       `json:"justification"`
}

type templateRequest struct {
	Title      string           `json:"title"`
	Category   model.Category   `json:"category"`
	Priority   model.Priority   `json:"priority"`
	Recurrence model.Recurrence `json:"recurrence"`
	DaysOfWeek model.Weekdays   `json:"daysOfWeek"`
	StartDate  string           `json:"startDate"`
	Time       string           `json:"time"`
	Period     model.Period     `json:"period"`
}

type templatePatchRequest struct {
	Title      *string           `json:"title"`
	Category   *model.Category   `json:"category"`
	Priority   *model.Priority   `json:"priority"`
	Recurrence *model.Recurrence `json:"recurrence"`
	DaysOfWeek *model.Weekdays   `json:"daysOfWeek"`
	StartDate  *string           `json:"startDate"`
	Time       *string           `json:"time"`
	Period     *model.Period     `json:"period"`
	IsPaused   *bool             `json:"isPaused"`
	IsArchived *bool             `json:"isArchived"`
}

type coachRequest struct {
	Message string `json:"message"`
}

func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Today handles GET /api/v1/users/:userID/today.
func (h *Handlers) Today(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	tasks, err := h.svc.Statuses.TodayTasks(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	if tasks == nil {
		tasks = []habit.Task{}
	}
	return c.JSON(fiber.Map{"date": h.svc.Clock.Today(), "tasks": tasks})
}

// UpdateStatus handles PUT /api/v1/users/:userID/tasks/:taskID/status.
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	saved, err := h.svc.Statuses.UpdateStatus(c.UserContext(), userID, c.Params("taskID"), req.Status, req.Justification)
	if err != nil {
		return toHTTPError(err)
	}
	if saved == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(saved)
}

func (h *Handlers) ListTemplates(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	templates, err := h.svc.Templates.ListTemplates(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	if templates == nil {
		templates = []model.Template{}
	}
	return c.JSON(templates)
}

func (h *Handlers) CreateTemplate(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tpl, err := h.svc.Templates.CreateTemplate(c.UserContext(), userID, service.TemplateInput{
		Title:      req.Title,
		Category:   req.Category,
		Priority:   req.Priority,
		Recurrence: req.Recurrence,
		DaysOfWeek: req.DaysOfWeek,
		StartDate:  req.StartDate,
		Time:       req.Time,
		Period:     req.Period,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

// UpdateTemplate handles PATCH. Field edits and lifecycle flags are
// validated and stored together.
func (h *Handlers) UpdateTemplate(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	var req templatePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tpl, err := h.svc.Templates.UpdateTemplate(c.UserContext(), userID, c.Params("taskID"), service.TemplatePatch{
		Title:      req.Title,
		Category:   req.Category,
		Priority:   req.Priority,
		Recurrence: req.Recurrence,
		DaysOfWeek: req.DaysOfWeek,
		StartDate:  req.StartDate,
		Time:       req.Time,
		Period:     req.Period,
		IsPaused:   req.IsPaused,
		IsArchived: req.IsArchived,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(tpl)
}

func (h *Handlers) DeleteTemplate(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Templates.DeleteTemplate(c.UserContext(), userID, c.Params("taskID")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) Stats(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Statuses.Stats(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(stats)
}

// Coach handles POST /api/v1/users/:userID/coach. Model failures still
// answer 200 with the fallback text.
func (h *Handlers) Coach(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	var req coachRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	reply, err := h.svc.Coach.Ask(c.UserContext(), userID, req.Message)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"reply": reply.Text, "fallback": reply.Fallback})
}

func (h *Handlers) CoachHistory(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	history, err := h.svc.Coach.History(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	if history == nil {
		history = []model.ChatMessage{}
	}
	return c.JSON(history)
}

func (h *Handlers) Tips(c *fiber.Ctx) error {
	userID, err := h.user(c)
	if err != nil {
		return err
	}
	adj, err := h.svc.Coach.Tips(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"suggestions": adj.Suggestions, "empathyQuote": adj.EmpathyQuote, "fallback": adj.Fallback})
}

// user resolves the :userID path parameter to a registered user.
func (h *Handlers) user(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("userID"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	user, err := h.svc.Users.FindByID(c.UserContext(), uint(id))
	if err != nil {
		return 0, toHTTPError(err)
	}
	return user.ID, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, service.ErrTemplateNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidRecurrence),
		errors.Is(err, service.ErrWeekdaysRequired),
		errors.Is(err, service.ErrInvalidStartDate),
		errors.Is(err, service.ErrInvalidPriority),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, habit.ErrInvalidStatus),
		errors.Is(err, habit.ErrInvalidDate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotReady):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
