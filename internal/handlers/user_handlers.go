package handlers

import (
	"net/http"
	"strings"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/service"
	"github.com/vandreio/tourbook/internal/utils"
)

// UserHandler serves the self-service /users/me endpoints and the
// admin-only user collection.
type UserHandler struct {
	users    *service.UserService
	images   *service.ImageService
	resource *Resource[*models.User, models.RegisterRequest, models.UpdateUserRequest]
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *service.UserService, repo repository.UserRepository, images *service.ImageService) *UserHandler {
	h := &UserHandler{users: users, images: images}
	h.resource = &Resource[*models.User, models.RegisterRequest, models.UpdateUserRequest]{
		Name:    "user",
		Plural:  "users",
		Schema:  repository.UserSchema(),
		Lister:  repo.List,
		Getter:  repo.GetByIDAny,
		Updater: repo.Update,
		Deleter: repo.Delete,
	}
	return h
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
		return
	}
	utils.JSON(w, http.StatusOK, "user", user.Sanitize())
}

// UpdateMe handles PATCH /api/v1/users/updateMe. The body is either JSON
// or a multipart form carrying an optional photo; password and role
// fields are rejected since the request type does not carry them.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
		return
	}

	var req models.UpdateMeRequest
	if strings.HasPrefix(r.Header.Get(constants.HeaderContentType), "multipart/form-data") {
		if err := h.decodeMultipartProfile(r, user.ID, &req); err != nil {
			utils.Error(w, err)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			utils.Error(w, err)
			return
		}
	} else if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	updated, err := h.users.UpdateMe(r.Context(), user.ID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, "user", updated.Sanitize())
}

// decodeMultipartProfile reads name/email fields and an optional photo
// file from a multipart form. The photo is resized and stored before the
// profile update runs.
func (h *UserHandler) decodeMultipartProfile(r *http.Request, userID int64, req *models.UpdateMeRequest) error {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return utils.NewBadRequestError("Invalid multipart form")
	}

	if name := r.FormValue("name"); name != "" {
		req.Name = &name
	}
	if email := r.FormValue("email"); email != "" {
		req.Email = &email
	}
	if r.PostFormValue("password") != "" || r.PostFormValue("role") != "" {
		return utils.NewBadRequestError("This route is not for password or role updates")
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		// The photo is optional
		return nil
	}
	defer file.Close()

	filename, err := h.images.SaveUserPhoto(file, userID)
	if err != nil {
		return err
	}
	req.Photo = &filename
	return nil
}

// DeleteMe handles DELETE /api/v1/users/deleteMe
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
		return
	}

	if err := h.users.DeleteMe(r.Context(), user.ID); err != nil {
		utils.Error(w, err)
		return
	}
	utils.NoContent(w)
}

// Create handles POST /api/v1/users. Accounts are only created through
// signup so credentials always pass through the auth flow.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	utils.Error(w, utils.NewBadRequestError("This route is not for creating users. Please use /signup instead"))
}

// List handles GET /api/v1/users (admin only)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) { h.resource.List(w, r) }

// GetOne handles GET /api/v1/users/{id} (admin only)
func (h *UserHandler) GetOne(w http.ResponseWriter, r *http.Request) { h.resource.GetOne(w, r) }

// Update handles PATCH /api/v1/users/{id} (admin only)
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) { h.resource.Update(w, r) }

// Delete handles DELETE /api/v1/users/{id} (admin only)
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) { h.resource.Delete(w, r) }
