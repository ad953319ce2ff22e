package routes

import (
	"github.com/AnshRaj112/vcard-backend/internal/handlers"
	"github.com/AnshRaj112/vcard-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	Auth     *handlers.AuthHandler
	Cards    *handlers.CardHandler
	Sessions middleware.SessionResolver
	Logger   *zap.Logger
	// DevRoutes mounts helpers such as /api/dev/test-email (never in production).
	DevRoutes bool
}

func SetupRoutes(r *chi.Mux, deps Dependencies) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(deps.Sessions, deps.Logger))

		// Account lifecycle
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Get("/confirm/{token}", deps.Auth.ConfirmEmail)
			r.Post("/resend", deps.Auth.ResendVerification)
			r.Post("/check-username", deps.Auth.CheckUsernameAvailability)
			r.Post("/login", deps.Auth.Login)
			r.Post("/logout", deps.Auth.Logout)
			r.With(middleware.RequireSession).Post("/logout-all", deps.Auth.LogoutAll)
			r.With(middleware.RequireSession).Get("/me", deps.Auth.GetMe)
		})

		// Visiting cards; GET /{id} is also the public view
		r.Route("/api/cards", func(r chi.Router) {
			r.Get("/{id}", deps.Cards.GetCard)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/", deps.Cards.ListCards)
				r.Post("/", deps.Cards.CreateCard)
				r.Get("/{id}/edit", deps.Cards.GetCardForEdit)
				r.Put("/{id}", deps.Cards.UpdateCard)
				r.Delete("/{id}", deps.Cards.DeleteCard)
			})
		})

		if deps.DevRoutes {
			r.Post("/api/dev/test-email", deps.Auth.SendTestEmail)
		}
	})
}
