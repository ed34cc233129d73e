package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/service"
	"github.com/vandreio/tourbook/internal/utils"
)

// TourHandler serves the tour endpoints.
type TourHandler struct {
	tours    repository.TourRepository
	reviews  repository.ReviewRepository
	images   *service.ImageService
	resource *Resource[*models.Tour, models.CreateTourRequest, models.UpdateTourRequest]
}

// NewTourHandler creates a new tour handler.
func NewTourHandler(tours repository.TourRepository, reviews repository.ReviewRepository, images *service.ImageService) *TourHandler {
	h := &TourHandler{tours: tours, reviews: reviews, images: images}
	h.resource = &Resource[*models.Tour, models.CreateTourRequest, models.UpdateTourRequest]{
		Name:    "tour",
		Plural:  "tours",
		Schema:  repository.TourSchema(),
		IDParam: constants.ParamTourID,
		Lister: func(ctx context.Context, q *database.ListQuery) ([]*models.Tour, error) {
			return tours.List(ctx, q, staffView(ctx))
		},
		Getter:  tours.GetByID,
		Creator: tours.Create,
		Updater: tours.Update,
		Deleter: tours.Delete,
	}
	return h
}

// staffView reports whether the request may see secret tours.
func staffView(ctx context.Context) bool {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return false
	}
	switch user.Role {
	case constants.RoleAdmin, constants.RoleLeadGuide, constants.RoleGuide:
		return true
	}
	return false
}

// List handles GET /api/v1/tours
func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) { h.resource.List(w, r) }

// GetOne handles GET /api/v1/tours/{id}. The detail response expands the
// guide ids into profiles and includes the tour's reviews.
func (h *TourHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, constants.ParamTourID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	tour, err := h.tours.GetByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if len(tour.Guides) > 0 {
		guides, err := h.tours.GuideDetails(r.Context(), tour.Guides)
		if err != nil {
			utils.Error(w, err)
			return
		}
		tour.GuideDetails = guides
	}

	q, err := database.ParseListQuery(url.Values{}, repository.ReviewSchema())
	if err != nil {
		utils.Error(w, err)
		return
	}
	reviews, err := h.reviews.List(r.Context(), q, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	tour.Reviews = reviews

	utils.JSON(w, http.StatusOK, "tour", tour)
}

// Create handles POST /api/v1/tours
func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) { h.resource.Create(w, r) }

// Update handles PATCH /api/v1/tours/{id}
func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) { h.resource.Update(w, r) }

// Delete handles DELETE /api/v1/tours/{id}
func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) { h.resource.Delete(w, r) }

// AliasTopTours rewrites the query string to the "top 5 cheap" preset
// before the regular listing runs.
func (h *TourHandler) AliasTopTours(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set(constants.QueryParamLimit, "5")
	q.Set(constants.QueryParamSort, "-ratingsAverage,price")
	q.Set(constants.QueryParamFields, "name,price,ratingsAverage,summary,difficulty")
	r.URL.RawQuery = q.Encode()

	h.resource.List(w, r)
}

// Stats handles GET /api/v1/tours/tour-stats
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tours.Stats(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "stats", stats)
}

// MonthlyPlan handles GET /api/v1/tours/monthly-plan/{year}
func (h *TourHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, constants.ParamYear))
	if err != nil || year < 1900 || year > 2200 {
		utils.Error(w, utils.NewBadRequestError("Invalid year"))
		return
	}

	plan, err := h.tours.MonthlyPlan(r.Context(), year)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "plan", plan)
}

// parseLatLng splits a "lat,lng" path segment.
func parseLatLng(raw string) (float64, float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, utils.NewBadRequestError("Please provide latitude and longitude in the format lat,lng")
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, utils.NewBadRequestError("Please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}

func parseUnit(raw string) (string, error) {
	switch raw {
	case constants.UnitKilometres, constants.UnitMiles:
		return raw, nil
	}
	return "", utils.NewBadRequestError("Unit must be either km or mi")
}

// Within handles GET /api/v1/tours/tours-within/{distance}/center/{latlng}/unit/{unit}
func (h *TourHandler) Within(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(chi.URLParam(r, constants.ParamDistance), 64)
	if err != nil || distance <= 0 {
		utils.Error(w, utils.NewBadRequestError("Distance must be a positive number"))
		return
	}

	lat, lng, err := parseLatLng(chi.URLParam(r, constants.ParamLatLng))
	if err != nil {
		utils.Error(w, err)
		return
	}

	unit, err := parseUnit(chi.URLParam(r, constants.ParamUnit))
	if err != nil {
		utils.Error(w, err)
		return
	}

	tours, err := h.tours.Within(r.Context(), lat, lng, distance, unit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSONList(w, http.StatusOK, "tours", len(tours), tours)
}

// Distances handles GET /api/v1/tours/distances/{latlng}/unit/{unit}
func (h *TourHandler) Distances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, constants.ParamLatLng))
	if err != nil {
		utils.Error(w, err)
		return
	}

	unit, err := parseUnit(chi.URLParam(r, constants.ParamUnit))
	if err != nil {
		utils.Error(w, err)
		return
	}

	distances, err := h.tours.Distances(r.Context(), lat, lng, unit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSONList(w, http.StatusOK, "distances", len(distances), distances)
}

// UploadImages handles PATCH /api/v1/tours/{id}/images with a multipart
// form carrying an optional cover and up to three gallery images.
func (h *TourHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, constants.ParamTourID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		utils.Error(w, utils.NewBadRequestError("Invalid multipart form"))
		return
	}

	update := &models.UpdateTourRequest{}

	if file, _, err := r.FormFile("imageCover"); err == nil {
		defer file.Close()
		filename, err := h.images.SaveTourCover(file, id)
		if err != nil {
			utils.Error(w, err)
			return
		}
		update.ImageCover = &filename
	}

	if r.MultipartForm != nil {
		images := r.MultipartForm.File["images"]
		if len(images) > 3 {
			utils.Error(w, utils.NewBadRequestError("A tour can have at most 3 gallery images"))
			return
		}
		var filenames []string
		for i, header := range images {
			file, err := header.Open()
			if err != nil {
				utils.Error(w, utils.NewBadRequestError("Could not read uploaded file"))
				return
			}
			filename, err := h.images.SaveTourImage(file, id, i+1)
			file.Close()
			if err != nil {
				utils.Error(w, err)
				return
			}
			filenames = append(filenames, filename)
		}
		if len(filenames) > 0 {
			update.Images = filenames
		}
	}

	if update.ImageCover == nil && update.Images == nil {
		utils.Error(w, utils.NewBadRequestError("No images uploaded"))
		return
	}

	tour, err := h.tours.Update(r.Context(), id, update)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "tour", tour)
}
