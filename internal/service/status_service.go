package service

import (
	"context"
	"fmt"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/session"
)

// Stats is the weekly success chart plus totals.
type Stats struct {
	Week   []habit.DayStat `json:"week"`
	Totals habit.Totals    `json:"totals"`
}

// StatusService records daily outcomes and derives today's list.
type StatusService struct {
	sessions *session.Manager
	clock    Clock
	streak   habit.StreakOptions
}

func NewStatusService(sessions *session.Manager, clock Clock, streak habit.StreakOptions) *StatusService {
	return &StatusService{sessions: sessions, clock: clock, streak: streak}
}

// UpdateStatus sets today's status for a template. A todo status clears
// the day; anything else replaces whatever was recorded before.
func (s *StatusService) UpdateStatus(ctx context.Context, userID uint, taskID string, status model.Status, justification string) (*model.Log, error) {
	today := s.clock.Today()
	now := s.clock.Current()

	var saved *model.Log
	err := s.sessions.Update(ctx, userID, func(b *habit.Book) error {
		if _, ok := b.Template(taskID); !ok {
			return fmt.Errorf("update status %s: %w", taskID, ErrTemplateNotFound)
		}
		var err error
		saved, err = b.SetStatus(taskID, today, status, justification, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *StatusService) TodayTasks(ctx context.Context, userID uint) ([]habit.Task, error) {
	today := s.clock.Today()
	var tasks []habit.Task
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		tasks = habit.TodayTasks(b, today, s.streak)
		return nil
	})
	return tasks, err
}

func (s *StatusService) Streak(ctx context.Context, userID uint, taskID string) (int, error) {
	today := s.clock.Today()
	var streak int
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		if _, ok := b.Template(taskID); !ok {
			return fmt.Errorf("streak %s: %w", taskID, ErrTemplateNotFound)
		}
		streak = habit.Streak(b, taskID, today, s.streak)
		return nil
	})
	return streak, err
}

func (s *StatusService) Stats(ctx context.Context, userID uint) (Stats, error) {
	today := s.clock.Today()
	var stats Stats
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		stats = Stats{
			Week:   habit.WeeklySuccess(b, today),
			Totals: habit.Summarize(b),
		}
		return nil
	})
	return stats, err
}
