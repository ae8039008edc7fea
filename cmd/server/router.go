package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasktracker-api/internal/api"
	apimw "github.com/phrazzld/tasktracker-api/internal/api/middleware"
)

// setupRouter builds the HTTP routes and middleware chain.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.TraceMiddleware(app.logger))
	r.Use(apimw.Metrics(app.metrics))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService)
	attachmentHandler := api.NewAttachmentHandler(app.attachmentService, app.config.Storage.MaxUploadBytes)
	workerHandler := api.NewWorkerHandler(app.scheduler, app.stats)
	healthHandler := api.NewHealthHandler(app.db, app.workerProbe(), app.redisPinger())
	authMiddleware := apimw.NewAuthMiddleware(app.jwtService)
	limits := app.config.RateLimit

	r.Route("/api", func(r chi.Router) {
		// Public authentication endpoints
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(app.limiter, limits.AuthRequests, limits.AuthWindow))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.RefreshToken)
		})

		r.Route("/health", func(r chi.Router) {
			r.Get("/", healthHandler.Health)
			r.Get("/api", healthHandler.API)
			r.Get("/database", healthHandler.Database)
			r.Get("/worker", healthHandler.Worker)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(apimw.RateLimit(app.limiter, limits.APIRequests, limits.APIWindow))

			r.Post("/auth/change-password", authHandler.ChangePassword)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListTasks)
				r.Post("/", taskHandler.CreateTask)
				r.Get("/{id}", taskHandler.GetTask)
				r.Patch("/{id}", taskHandler.UpdateTask)
				r.Delete("/{id}", taskHandler.DeleteTask)

				r.Get("/{id}/attachments", attachmentHandler.ListAttachments)
				r.Post("/{id}/attachments", attachmentHandler.UploadAttachment)
				r.Get("/{id}/attachments/{attachmentID}", attachmentHandler.DownloadAttachment)
				r.Delete("/{id}/attachments/{attachmentID}", attachmentHandler.DeleteAttachment)
			})

			r.Route("/worker", func(r chi.Router) {
				r.Get("/status", workerHandler.Status)
				r.Post("/trigger", workerHandler.Trigger)
				r.Get("/statistics", workerHandler.Statistics)
			})
		})
	})

	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}
