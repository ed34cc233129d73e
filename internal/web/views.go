// Package web renders the server-side HTML pages. The API stays the
// primary surface; these views are a thin browsing layer over the same
// repositories.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/utils"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Views renders the HTML pages.
type Views struct {
	tours     repository.TourRepository
	reviews   repository.ReviewRepository
	templates *template.Template
}

// NewViews parses the embedded templates and returns a page renderer.
func NewViews(tours repository.TourRepository, reviews repository.ReviewRepository) (*Views, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}
	return &Views{tours: tours, reviews: reviews, templates: templates}, nil
}

// pageData is the payload every template receives. User is nil for
// anonymous visitors.
type pageData struct {
	Title   string
	User    *models.User
	Tours   []*models.Tour
	Tour    *models.Tour
	Reviews []*models.Review
}

func (v *Views) render(w http.ResponseWriter, name string, data *pageData) {
	w.Header().Set(constants.HeaderContentType, "text/html; charset=utf-8")
	if err := v.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}

func (v *Views) renderError(w http.ResponseWriter, r *http.Request, err error) {
	user, _ := auth.UserFromContext(r.Context())
	appErr := utils.ParseError(err)
	w.Header().Set(constants.HeaderContentType, "text/html; charset=utf-8")
	w.WriteHeader(appErr.StatusCode)
	data := &pageData{Title: appErr.Message, User: user}
	if execErr := v.templates.ExecuteTemplate(w, "error", data); execErr != nil {
		log.Error().Err(execErr).Msg("Failed to render error template")
	}
}

// Overview handles GET / with the full tour catalogue.
func (v *Views) Overview(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	q, err := database.ParseListQuery(url.Values{}, repository.TourSchema())
	if err != nil {
		v.renderError(w, r, err)
		return
	}
	tours, err := v.tours.List(r.Context(), q, false)
	if err != nil {
		v.renderError(w, r, err)
		return
	}

	v.render(w, "overview", &pageData{Title: "All Tours", User: user, Tours: tours})
}

// TourDetail handles GET /tour/{slug} with the tour and its reviews.
func (v *Views) TourDetail(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	slug := chi.URLParam(r, constants.ParamSlug)
	tour, err := v.tours.GetBySlug(r.Context(), slug)
	if err != nil {
		v.renderError(w, r, err)
		return
	}

	q, err := database.ParseListQuery(url.Values{}, repository.ReviewSchema())
	if err != nil {
		v.renderError(w, r, err)
		return
	}
	reviews, err := v.reviews.List(r.Context(), q, tour.ID)
	if err != nil {
		v.renderError(w, r, err)
		return
	}

	v.render(w, "tour", &pageData{Title: tour.Name, User: user, Tour: tour, Reviews: reviews})
}

// Login handles GET /login. Logged-in visitors are sent back home.
func (v *Views) Login(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.UserFromContext(r.Context()); ok && user != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	v.render(w, "login", &pageData{Title: "Log in to your account"})
}

// Account handles GET /me with the logged-in user's profile page.
func (v *Views) Account(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	v.render(w, "account", &pageData{Title: "Your account", User: user})
}
