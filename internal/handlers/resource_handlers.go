// Package handlers contains the HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/utils"
)

// Resource wires the uniform CRUD surface for one resource type. T is the
// entity, C and U the create and update payloads. Handlers built from it
// share the same listing pipeline, validation, envelope and error paths;
// resource-specific endpoints live next to it in their own handler.
type Resource[T any, C any, U any] struct {
	// Name keys single results in the response envelope, e.g. "tour".
	Name string
	// Plural keys list results, e.g. "tours".
	Plural string
	// Schema drives filtering, sorting and projection for List.
	Schema database.ResourceSchema
	// IDParam names the route parameter carrying the resource id.
	// Empty means the default "id".
	IDParam string

	Lister  func(ctx context.Context, q *database.ListQuery) ([]T, error)
	Getter  func(ctx context.Context, id int64) (T, error)
	Creator func(ctx context.Context, req *C) (T, error)
	Updater func(ctx context.Context, id int64, req *U) (T, error)
	Deleter func(ctx context.Context, id int64) error
}

func (res *Resource[T, C, U]) idParam() string {
	if res.IDParam != "" {
		return res.IDParam
	}
	return constants.ParamID
}

// ParseIDParam reads a numeric id from the route.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, utils.NewBadRequestError("Invalid identifier format")
	}
	return id, nil
}

// List handles GET /<resources> with filtering, sorting, projection and
// pagination from the query string.
func (res *Resource[T, C, U]) List(w http.ResponseWriter, r *http.Request) {
	q, err := database.ParseListQuery(r.URL.Query(), res.Schema)
	if err != nil {
		utils.Error(w, err)
		return
	}

	items, err := res.Lister(r.Context(), q)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSONList(w, http.StatusOK, res.Plural, len(items), utils.ProjectFields(items, q.Fields()))
}

// GetOne handles GET /<resources>/{id}.
func (res *Resource[T, C, U]) GetOne(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, res.idParam())
	if err != nil {
		utils.Error(w, err)
		return
	}

	item, err := res.Getter(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, res.Name, item)
}

// Create handles POST /<resources>.
func (res *Resource[T, C, U]) Create(w http.ResponseWriter, r *http.Request) {
	var req C
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	item, err := res.Creator(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, res.Name, item)
}

// Update handles PATCH /<resources>/{id}.
func (res *Resource[T, C, U]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, res.idParam())
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req U
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	item, err := res.Updater(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, res.Name, item)
}

// Delete handles DELETE /<resources>/{id}.
func (res *Resource[T, C, U]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, res.idParam())
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := res.Deleter(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}

	utils.NoContent(w)
}
