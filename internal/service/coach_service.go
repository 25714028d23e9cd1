package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"routine-coach/internal/coach"
	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/repository"
	"routine-coach/internal/session"
)

var ErrEmptyMessage = errors.New("message is empty")

// CoachService connects the coach to a user's routine and chat history.
type CoachService struct {
	sessions     *session.Manager
	chats        *repository.ChatRepository
	coach        *coach.Coach
	clock        Clock
	historyLimit int
}

func NewCoachService(sessions *session.Manager, chats *repository.ChatRepository, c *coach.Coach, clock Clock, historyLimit int) *CoachService {
	return &CoachService{sessions: sessions, chats: chats, coach: c, clock: clock, historyLimit: historyLimit}
}

// Ask sends a message to the coach. Failures of the model come back as the
// fallback reply, which is shown but not kept in the history.
func (s *CoachService) Ask(ctx context.Context, userID uint, message string) (coach.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return coach.Reply{}, ErrEmptyMessage
	}

	var templates []model.Template
	var logs []model.Log
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		templates = b.Templates()
		logs = b.Logs()
		return nil
	})
	if err != nil {
		return coach.Reply{}, err
	}

	history, err := s.chats.Recent(ctx, userID, s.historyLimit)
	if err != nil {
		log.Printf("[warn] load chat history for user %d: %v", userID, err)
		history = nil
	}

	reply := s.coach.Reply(ctx, coach.Input{
		Message:   message,
		History:   history,
		Templates: templates,
		Logs:      logs,
	})
	if reply.Fallback {
		return reply, nil
	}

	now := s.clock.Current()
	err = s.chats.Append(ctx,
		&model.ChatMessage{UserID: userID, Role: model.RoleUser, Text: message, CreatedAt: now},
		&model.ChatMessage{UserID: userID, Role: model.RoleModel, Text: reply.Text, CreatedAt: now},
	)
	if err != nil {
		log.Printf("[warn] save chat for user %d: %v", userID, err)
	}
	return reply, nil
}

// Tips asks the coach to review recent logs and propose adjustments.
func (s *CoachService) Tips(ctx context.Context, userID uint) (coach.Adjustments, error) {
	var templates []model.Template
	var logs []model.Log
	err := s.sessions.View(ctx, userID, func(b *habit.Book) error {
		templates = b.Templates()
		logs = b.Logs()
		return nil
	})
	if err != nil {
		return coach.Adjustments{}, err
	}
	return s.coach.Adjustments(ctx, templates, logs), nil
}

func (s *CoachService) History(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	return s.chats.Recent(ctx, userID, s.historyLimit)
}

func (s *CoachService) ResetHistory(ctx context.Context, userID uint) error {
	return s.chats.Clear(ctx, userID)
}
