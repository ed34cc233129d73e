package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/utils"
)

// ReviewHandler serves reviews both nested under a tour and on the flat
// collection route.
type ReviewHandler struct {
	reviews repository.ReviewRepository
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews repository.ReviewRepository) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// tourIDFromRoute returns the tour id from the nested route, or 0 when
// the flat route is used.
func tourIDFromRoute(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, constants.ParamTourID)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, utils.NewBadRequestError("Invalid tour identifier")
	}
	return id, nil
}

// List handles GET /api/v1/reviews and GET /api/v1/tours/{tourID}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	tourID, err := tourIDFromRoute(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	q, err := database.ParseListQuery(r.URL.Query(), repository.ReviewSchema())
	if err != nil {
		utils.Error(w, err)
		return
	}

	reviews, err := h.reviews.List(r.Context(), q, tourID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSONList(w, http.StatusOK, "reviews", len(reviews), utils.ProjectFields(reviews, q.Fields()))
}

// GetOne handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, constants.ParamID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	review, err := h.reviews.GetByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "review", review)
}

// Create handles POST /api/v1/reviews and POST /api/v1/tours/{tourID}/reviews.
// The author is always the logged-in user; on the nested route the tour
// comes from the path and overrides anything in the body.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
		return
	}

	var req models.CreateReviewRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	tourID, err := tourIDFromRoute(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if tourID == 0 {
		tourID = req.TourID
	}
	if tourID < 1 {
		utils.Error(w, utils.NewBadRequestError("A review must belong to a tour"))
		return
	}

	review := &models.Review{
		Review: req.Review,
		Rating: req.Rating,
		TourID: tourID,
		UserID: user.ID,
	}
	if err := h.reviews.Create(r.Context(), review); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, "review", review)
}

// authorize loads a review and checks that the logged-in user may modify
// it. Admins may modify any review, everyone else only their own.
func (h *ReviewHandler) authorize(r *http.Request, id int64) error {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return utils.NewUnauthorizedError(constants.MsgAuthRequired)
	}
	if user.Role == constants.RoleAdmin {
		return nil
	}

	review, err := h.reviews.GetByID(r.Context(), id)
	if err != nil {
		return err
	}
	if review.UserID != user.ID {
		return utils.NewForbiddenError("You can only modify your own reviews")
	}
	return nil
}

// Update handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, constants.ParamID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if err := h.authorize(r, id); err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateReviewRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	review, err := h.reviews.Update(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "review", review)
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, constants.ParamID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if err := h.authorize(r, id); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.NoContent(w)
}
