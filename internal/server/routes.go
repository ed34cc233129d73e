package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/middleware"
	"github.com/vandreio/tourbook/internal/utils"
)

// SetupRoutes configures the router hierarchy: health and version
// endpoints, the versioned API, and the server-rendered pages. Protected
// groups stack the auth middleware; role checks sit on the route groups
// that need them.
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(&s.Config.CORS))

	protect := middleware.Protect(s.authProviders.JWTService, s.repos.users)
	optionalAuth := middleware.OptionalAuth(s.authProviders.JWTService, s.repos.users)
	staffOnly := middleware.RestrictTo(constants.RoleAdmin, constants.RoleLeadGuide)
	adminOnly := middleware.RestrictTo(constants.RoleAdmin)
	guidesAndUp := middleware.RestrictTo(constants.RoleAdmin, constants.RoleLeadGuide, constants.RoleGuide)

	// Health check and version routes (unprotected)
	r.Get(constants.HealthPath, func(w http.ResponseWriter, req *http.Request) {
		if err := s.Db.HealthCheck(req.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			utils.Message(w, http.StatusServiceUnavailable, "Service is not healthy")
			return
		}
		utils.JSON(w, http.StatusOK, "", map[string]string{
			"status":  "healthy",
			"version": s.Config.App.Version,
		})
	})
	r.Get(constants.VersionPath, func(w http.ResponseWriter, req *http.Request) {
		utils.JSON(w, http.StatusOK, "", map[string]string{
			"version":     s.Config.App.Version,
			"environment": s.Config.App.Environment,
		})
	})

	r.Route(constants.APIBasePath, func(r chi.Router) {
		// Tour routes
		r.Route("/tours", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", s.Handlers.TourHandler.List)
				r.Get("/top-5-cheap", s.Handlers.TourHandler.AliasTopTours)
				r.Get("/tour-stats", s.Handlers.TourHandler.Stats)
				r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", s.Handlers.TourHandler.Within)
				r.Get("/distances/{latlng}/unit/{unit}", s.Handlers.TourHandler.Distances)
				r.Get("/{tourID}", s.Handlers.TourHandler.GetOne)
			})

			r.Group(func(r chi.Router) {
				r.Use(protect, guidesAndUp)
				r.Get("/monthly-plan/{year}", s.Handlers.TourHandler.MonthlyPlan)
			})

			r.Group(func(r chi.Router) {
				r.Use(protect, staffOnly)
				r.Post("/", s.Handlers.TourHandler.Create)
				r.Patch("/{tourID}", s.Handlers.TourHandler.Update)
				r.Patch("/{tourID}/images", s.Handlers.TourHandler.UploadImages)
				r.Delete("/{tourID}", s.Handlers.TourHandler.Delete)
			})

			// Nested reviews
			r.Route("/{tourID}/reviews", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(optionalAuth)
					r.Get("/", s.Handlers.ReviewHandler.List)
				})
				r.Group(func(r chi.Router) {
					r.Use(protect, middleware.RestrictTo(constants.RoleUser))
					r.Post("/", s.Handlers.ReviewHandler.Create)
				})
			})
		})

		// Review routes
		r.Route("/reviews", func(r chi.Router) {
			r.Use(protect)
			r.Get("/", s.Handlers.ReviewHandler.List)
			r.Get("/{id}", s.Handlers.ReviewHandler.GetOne)
			r.With(middleware.RestrictTo(constants.RoleUser)).Post("/", s.Handlers.ReviewHandler.Create)
			r.Patch("/{id}", s.Handlers.ReviewHandler.Update)
			r.Delete("/{id}", s.Handlers.ReviewHandler.Delete)
		})

		// User and auth routes
		r.Route("/users", func(r chi.Router) {
			// Public auth endpoints
			r.Post("/signup", s.Handlers.AuthHandler.Register)
			r.Post("/login", s.Handlers.AuthHandler.Login)
			r.Get("/logout", s.Handlers.AuthHandler.Logout)
			r.Post("/forgotPassword", s.Handlers.AuthHandler.ForgotPassword)
			r.Patch("/resetPassword/{token}", s.Handlers.AuthHandler.ResetPassword)

			// Self-service endpoints
			r.Group(func(r chi.Router) {
				r.Use(protect)
				r.Get("/me", s.Handlers.UserHandler.GetMe)
				r.Patch("/updateMe", s.Handlers.UserHandler.UpdateMe)
				r.Delete("/deleteMe", s.Handlers.UserHandler.DeleteMe)
				r.Patch("/updateMyPassword", s.Handlers.AuthHandler.UpdateMyPassword)
			})

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(protect, adminOnly)
				r.Get("/", s.Handlers.UserHandler.List)
				r.Post("/", s.Handlers.UserHandler.Create)
				r.Get("/{id}", s.Handlers.UserHandler.GetOne)
				r.Patch("/{id}", s.Handlers.UserHandler.Update)
				r.Delete("/{id}", s.Handlers.UserHandler.Delete)
			})
		})
	})

	// Server-rendered pages
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", s.Handlers.Views.Overview)
		r.Get("/tour/{slug}", s.Handlers.Views.TourDetail)
		r.Get("/login", s.Handlers.Views.Login)
		r.Get("/me", s.Handlers.Views.Account)
	})

	// Uploaded images and static assets
	fileServer := http.StripPrefix("/public/", http.FileServer(http.Dir("public")))
	r.Get("/public/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})

	s.router = r
}
