package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/api/handlers"
	"github.com/dom/crusade-tracker/internal/api/middleware"
	"github.com/dom/crusade-tracker/internal/service"
	"github.com/dom/crusade-tracker/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	campaignHandler := handlers.NewCampaignHandler(services.Campaign)
	unitHandler := handlers.NewUnitHandler(services.Campaign)
	battleHandler := handlers.NewBattleHandler(services.Battle)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, log)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Route("/campaigns", func(r chi.Router) {
				r.Post("/", campaignHandler.Create)
				r.Get("/", campaignHandler.List)

				r.Route("/{campaignId}", func(r chi.Router) {
					r.Get("/", campaignHandler.Get)
					r.Delete("/", campaignHandler.Delete)
					r.Post("/save", campaignHandler.Save)
					r.Post("/recover", campaignHandler.Recover)
					r.Post("/validate", campaignHandler.Validate)
					r.Get("/events", campaignHandler.Events)

					// Roster management
					r.Route("/players", func(r chi.Router) {
						r.Post("/", campaignHandler.AddPlayer)
						r.Delete("/{playerId}", campaignHandler.RemovePlayer)
						r.Post("/{playerId}/units", unitHandler.Add)
						r.Post("/{playerId}/units/import", unitHandler.Import)
					})

					r.Route("/units/{unitId}", func(r chi.Router) {
						r.Patch("/", unitHandler.Update)
						r.Delete("/", unitHandler.Remove)
						r.Post("/honours", unitHandler.AddHonour)
						r.Delete("/honours/{honourId}", unitHandler.RemoveHonour)
						r.Post("/scars", unitHandler.AddScar)
					})

					// Requisition purchases
					r.Post("/requisitions", campaignHandler.Purchase)
					r.Post("/requisitions/quote", campaignHandler.QuoteRequisition)

					// Battle workflow
					r.Route("/battles", func(r chi.Router) {
						r.Post("/", battleHandler.Start)

						r.Route("/{battleId}", func(r chi.Router) {
							r.Delete("/", battleHandler.Discard)
							r.Post("/kills", battleHandler.RecordKills)
							r.Post("/greatness", battleHandler.MarkForGreatness)
							r.Post("/destroyed", battleHandler.RecordDestroyed)
							r.Post("/destroyed/{unitId}/roll", battleHandler.RollOutOfAction)
							r.Post("/destroyed/{unitId}/consequence", battleHandler.ChooseConsequence)
							r.Post("/complete", battleHandler.Complete)
						})
					})
				})
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
