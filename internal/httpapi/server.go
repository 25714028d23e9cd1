// Package httpapi exposes the habit tracker over JSON HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"routine-coach/internal/repository"
	"routine-coach/internal/service"
)

// Services are the dependencies the API calls into.
type Services struct {
	Users     *repository.UserRepository
	Templates *service.TemplateService
	Statuses  *service.StatusService
	Coach     *service.CoachService
	Clock     service.Clock
}

// Server is the Fiber application serving the API.
type Server struct {
	app  *fiber.App
	addr string
}

// New builds the API. Requests under /api/v1 must carry
// "Authorization: Bearer <apiToken>"; an empty token rejects them all.
func New(addr, apiToken string, svc Services) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "routine-coach",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[info] http ${status} ${method} ${path} ${latency}\n",
	}))

	registerRoutes(app, &Handlers{svc: svc}, requireToken(apiToken))
	return &Server{app: app, addr: addr}
}

func registerRoutes(app *fiber.App, h *Handlers, auth fiber.Handler) {
	app.Get("/health", h.Health)

	users := app.Group("/api/v1", auth).Group("/users/:userID")
	users.Get("/today", h.Today)
	users.Put("/tasks/:taskID/status", h.UpdateStatus)
	users.Get("/templates", h.ListTemplates)
	users.Post("/templates", h.CreateTemplate)
	users.Patch("/templates/:taskID", h.UpdateTemplate)
	users.Delete("/templates/:taskID", h.DeleteTemplate)
	users.Get("/stats", h.Stats)
	users.Post("/coach", h.Coach)
	users.Get("/coach/history", h.CoachHistory)
	users.Get("/coach/tips", h.Tips)
}

func requireToken(apiToken string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if apiToken == "" {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiToken)) == 1, nil
		},
		ErrorHandler: func(_ *fiber.Ctx, _ error) error {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid api token")
		},
	})
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens in the background and reports immediate startup errors.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}
	log.Printf("[info] http api listening on %s", s.addr)
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Println("[info] http api stopped")
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("[warn] http %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
