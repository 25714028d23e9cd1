package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/session"
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title is too long")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrWeekdaysRequired  = errors.New("weekly recurrence needs at least one weekday")
	ErrInvalidStartDate  = errors.New("invalid start date")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidTime       = errors.New("time must be HH:MM")
	ErrTemplateNotFound  = habit.ErrTemplateNotFound
)

const maxTitleLength = 120

var defaultWeeklyDays = model.Weekdays{1, 2, 3, 4, 5}

// TemplateInput represents data required to create a template.
type TemplateInput struct {
	Title      string
	Category   model.Category
	Priority   model.Priority
	Recurrence model.Recurrence
	DaysOfWeek model.Weekdays
	StartDate  string
	Time       string
	Period     model.Period
}

// TemplatePatch carries optional template edits, lifecycle flags included.
type TemplatePatch struct {
	Title      *string
	Category   *model.Category
	Priority   *model.Priority
	Recurrence *model.Recurrence
	DaysOfWeek *model.Weekdays
	StartDate  *string
	Time       *string
	Period     *model.Period
	IsPaused   *bool
	IsArchived *bool
}

// TemplateService wraps template-related business logic.
type TemplateService struct {
	sessions *session.Manager
	clock    Clock
}

func NewTemplateService(sessions *session.Manager, clock Clock) *TemplateService {
	return &TemplateService{sessions: sessions, clock: clock}
}

func (s *TemplateService) CreateTemplate(ctx context.Context, userID uint, input TemplateInput) (model.Template, error) {
	t := model.Template{
		Category: model.CategoryWork,
		Priority: model.PriorityMedium,
		Period:   model.PeriodContinuous,
	}
	t.Title = strings.TrimSpace(input.Title)
	t.Recurrence = input.Recurrence
	t.DaysOfWeek = input.DaysOfWeek
	t.StartDate = strings.TrimSpace(input.StartDate)
	t.Time = strings.TrimSpace(input.Time)
	t.Active = true
	if input.Category != "" {
		t.Category = input.Category
	}
	if input.Priority != "" {
		t.Priority = input.Priority
	}
	if input.Period != "" {
		t.Period = input.Period
	}
	if t.Recurrence == "" {
		t.Recurrence = model.RecurrenceDaily
	}
	if t.Recurrence == model.RecurrenceWeekly && input.DaysOfWeek == nil {
		t.DaysOfWeek = defaultWeeklyDays
	}
	if t.StartDate == "" {
		t.StartDate = s.clock.Today()
	}
	now := s.clock.Current()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := validateTemplate(t); err != nil {
		return model.Template{}, err
	}

	var created model.Template
	err := s.sessions.Update(ctx, userID, func(b *habit.Book) error {
		created = b.AddTemplate(t)
		return nil
	})
	if err != nil {
		return model.Template{}, err
	}
	return created, nil
}

func (s *TemplateService) ListTemplates(ctx context.Context, userID uint) ([]model.Template, error) {
	var templates []model.Template
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		templates = b.Templates()
		return nil
	})
	return templates, err
}

func (s *TemplateService) GetTemplate(ctx context.Context, userID uint, id string) (model.Template, error) {
	var t model.Template
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		var ok bool
		if t, ok = b.Template(id); !ok {
			return fmt.Errorf("get %s: %w", id, ErrTemplateNotFound)
		}
		return nil
	})
	return t, err
}

// UpdateTemplate applies every set field of the patch in one edit.
func (s *TemplateService) UpdateTemplate(ctx context.Context, userID uint, id string, patch TemplatePatch) (model.Template, error) {
	return s.edit(ctx, userID, id, func(t *model.Template) {
		if patch.Title != nil {
			t.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Recurrence != nil {
			t.Recurrence = *patch.Recurrence
		}
		if patch.DaysOfWeek != nil {
			t.DaysOfWeek = *patch.DaysOfWeek
		}
		if patch.StartDate != nil {
			t.StartDate = strings.TrimSpace(*patch.StartDate)
		}
		if patch.Time != nil {
			t.Time = strings.TrimSpace(*patch.Time)
		}
		if patch.Period != nil {
			t.Period = *patch.Period
		}
		if patch.IsPaused != nil {
			t.IsPaused = *patch.IsPaused
		}
		if patch.IsArchived != nil {
			t.IsArchived = *patch.IsArchived
		}
	})
}

func (s *TemplateService) SetPaused(ctx context.Context, userID uint, id string, paused bool) (model.Template, error) {
	return s.edit(ctx, userID, id, func(t *model.Template) { t.IsPaused = paused })
}

func (s *TemplateService) Archive(ctx context.Context, userID uint, id string) (model.Template, error) {
	return s.edit(ctx, userID, id, func(t *model.Template) { t.IsArchived = true })
}

// DeleteTemplate removes a template from the plan. Its logs are kept so
// past success still counts in the history.
func (s *TemplateService) DeleteTemplate(ctx context.Context, userID uint, id string) (model.Template, error) {
	var removed model.Template
	err := s.sessions.Update(ctx, userID, func(b *habit.Book) error {
		var err error
		removed, err = b.RemoveTemplate(id)
		return err
	})
	return removed, err
}

func (s *TemplateService) edit(ctx context.Context, userID uint, id string, apply func(*model.Template)) (model.Template, error) {
	var updated model.Template
	err := s.sessions.Update(ctx, userID, func(b *habit.Book) error {
		current, ok := b.Template(id)
		if !ok {
			return fmt.Errorf("edit %s: %w", id, ErrTemplateNotFound)
		}
		// Blank priority and period take the creation defaults.
		if current.Priority == "" {
			current.Priority = model.PriorityMedium
		}
		if current.Period == "" {
			current.Period = model.PeriodContinuous
		}
		apply(&current)
		current.UpdatedAt = s.clock.Current()
		if err := validateTemplate(current); err != nil {
			return err
		}
		var err error
		updated, err = b.UpdateTemplate(id, func(t *model.Template) { *t = current })
		return err
	})
	return updated, err
}

func validateTemplate(t model.Template) error {
	if t.Title == "" {
		return ErrTitleRequired
	}
	if len([]rune(t.Title)) > maxTitleLength {
		return ErrTitleTooLong
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%q: %w", t.Category, ErrInvalidCategory)
	}
	if !t.Recurrence.Valid() {
		return fmt.Errorf("%q: %w", t.Recurrence, ErrInvalidRecurrence)
	}
	if t.Recurrence == model.RecurrenceWeekly && len(t.DaysOfWeek.Normalize()) == 0 {
		return ErrWeekdaysRequired
	}
	if _, err := habit.ParseDate(t.StartDate); err != nil {
		return fmt.Errorf("%q: %w", t.StartDate, ErrInvalidStartDate)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%q: %w", t.Priority, ErrInvalidPriority)
	}
	if !t.Period.Valid() {
		return fmt.Errorf("%q: %w", t.Period, ErrInvalidPeriod)
	}
	if t.Time != "" {
		if _, err := time.Parse("15:04", t.Time); err != nil {
			return fmt.Errorf("%q: %w", t.Time, ErrInvalidTime)
		}
	}
	return nil
}
