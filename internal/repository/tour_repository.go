package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

const tourColumns = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average, ratings_quantity, price, price_discount, summary,
	description, image_cover, images, start_dates, secret, start_location,
	locations, guides, created_at, updated_at`

// haversineSQL computes the great-circle distance between a tour's start
// location and a reference point. Placeholders: $1 latitude, $2 longitude,
// $3 sphere radius in the requested unit. Coordinates in the JSONB column
// are stored [longitude, latitude].
const haversineSQL = `2 * $3 * asin(sqrt(
	power(sin(radians(((start_location->'coordinates')->>1)::float8 - $1) / 2), 2)
	+ cos(radians($1)) * cos(radians(((start_location->'coordinates')->>1)::float8))
	* power(sin(radians(((start_location->'coordinates')->>0)::float8 - $2) / 2), 2)
))`

// TourRepository provides access to tours.
type TourRepository interface {
	List(ctx context.Context, q *database.ListQuery, includeSecret bool) ([]*models.Tour, error)
	GetByID(ctx context.Context, id int64) (*models.Tour, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tour, error)
	GuideDetails(ctx context.Context, ids []int64) ([]*models.TourGuide, error)
	Create(ctx context.Context, req *models.CreateTourRequest) (*models.Tour, error)
	Update(ctx context.Context, id int64, req *models.UpdateTourRequest) (*models.Tour, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) ([]*models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]*models.MonthlyPlanEntry, error)
	Within(ctx context.Context, lat, lng, distance float64, unit string) ([]*models.Tour, error)
	Distances(ctx context.Context, lat, lng float64, unit string) ([]*models.TourDistance, error)
}

// PostgresTourRepository is the PostgreSQL implementation of TourRepository.
type PostgresTourRepository struct {
	pool *database.Pool
}

// NewTourRepository creates a new tour repository.
func NewTourRepository(pool *database.Pool) *PostgresTourRepository {
	return &PostgresTourRepository{pool: pool}
}

// TourSchema describes the listing surface for tours.
func TourSchema() database.ResourceSchema {
	return database.ResourceSchema{
		Filterable: map[string]string{
			"name":            "name",
			"duration":        "duration",
			"maxGroupSize":    "max_group_size",
			"difficulty":      "difficulty",
			"ratingsAverage":  "ratings_average",
			"ratingsQuantity": "ratings_quantity",
			"price":           "price",
		},
		Sortable: map[string]string{
			"name":            "name",
			"duration":        "duration",
			"difficulty":      "difficulty",
			"ratingsAverage":  "ratings_average",
			"ratingsQuantity": "ratings_quantity",
			"price":           "price",
			"createdAt":       "created_at",
		},
		Selectable: map[string]string{
			"name":            "name",
			"slug":            "slug",
			"duration":        "duration",
			"maxGroupSize":    "max_group_size",
			"difficulty":      "difficulty",
			"ratingsAverage":  "ratings_average",
			"ratingsQuantity": "ratings_quantity",
			"price":           "price",
			"summary":         "summary",
			"description":     "description",
			"imageCover":      "image_cover",
			"createdAt":       "created_at",
		},
		DefaultSort: "created_at DESC",
	}
}

func scanTour(row interface{ Scan(...interface{}) error }) (*models.Tour, error) {
	var tour models.Tour
	err := row.Scan(
		&tour.ID,
		&tour.Name,
		&tour.Slug,
		&tour.Duration,
		&tour.MaxGroupSize,
		&tour.Difficulty,
		&tour.RatingsAverage,
		&tour.RatingsQuantity,
		&tour.Price,
		&tour.PriceDiscount,
		&tour.Summary,
		&tour.Description,
		&tour.ImageCover,
		&tour.Images,
		pq.Array(&tour.StartDates),
		&tour.Secret,
		&tour.StartLocation,
		&tour.Locations,
		&tour.Guides,
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tour.Derive()
	return &tour, nil
}

// List returns tours shaped by the listing query. Secret tours are hidden
// unless includeSecret is set. When a page was requested explicitly and
// lies beyond the collection, the request fails instead of returning an
// empty list.
func (r *PostgresTourRepository) List(ctx context.Context, q *database.ListQuery, includeSecret bool) ([]*models.Tour, error) {
	where, args := q.WhereClause(1)
	filter := "TRUE"
	if !includeSecret {
		filter = "secret = FALSE"
	}
	if where != "" {
		filter += " AND " + where
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tours WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		tourColumns, filter, q.OrderBy(), q.Limit, q.Offset(),
	)

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var tours []*models.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, utils.ParseError(err)
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}

	if len(tours) == 0 && q.PageExplicit && q.Page > 1 {
		count, err := r.count(ctx, filter, args)
		if err != nil {
			return nil, err
		}
		if q.Offset() >= count {
			return nil, utils.NewNotFoundError("page", q.Page)
		}
	}

	return tours, nil
}

func (r *PostgresTourRepository) count(ctx context.Context, filter string, args []interface{}) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tours WHERE %s`, filter)

	start := time.Now()
	var count int
	err := r.pool.QueryRowContext(ctx, query, args...).Scan(&count)
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		return 0, utils.ParseError(err)
	}
	return count, nil
}

// GetByID retrieves a tour by ID.
func (r *PostgresTourRepository) GetByID(ctx context.Context, id int64) (*models.Tour, error) {
	query := fmt.Sprintf(`SELECT %s FROM tours WHERE id = $1`, tourColumns)

	start := time.Now()
	tour, err := scanTour(r.pool.QueryRowContext(ctx, query, id))
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("tour", id)
		}
		return nil, utils.ParseError(err)
	}
	return tour, nil
}

// GetBySlug retrieves a tour by its URL slug.
func (r *PostgresTourRepository) GetBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	query := fmt.Sprintf(`SELECT %s FROM tours WHERE slug = $1`, tourColumns)

	start := time.Now()
	tour, err := scanTour(r.pool.QueryRowContext(ctx, query, slug))
	utils.LogDBQuery(query, []interface{}{slug}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("tour", slug)
		}
		return nil, utils.ParseError(err)
	}
	return tour, nil
}

// GuideDetails loads the public profiles behind a tour's guide ids, in
// id order. Deactivated accounts are skipped.
func (r *PostgresTourRepository) GuideDetails(ctx context.Context, ids []int64) ([]*models.TourGuide, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, email, photo, role FROM users
		WHERE id = ANY($1) AND active = TRUE
		ORDER BY id
	`

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, pq.Array(ids))
	utils.LogDBQuery(query, []interface{}{ids}, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var guides []*models.TourGuide
	for rows.Next() {
		var guide models.TourGuide
		if err := rows.Scan(&guide.ID, &guide.Name, &guide.Email, &guide.Photo, &guide.Role); err != nil {
			return nil, utils.ParseError(err)
		}
		guides = append(guides, &guide)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return guides, nil
}

// Create inserts a new tour. The slug is derived from the name.
func (r *PostgresTourRepository) Create(ctx context.Context, req *models.CreateTourRequest) (*models.Tour, error) {
	query := fmt.Sprintf(`
		INSERT INTO tours (name, slug, duration, max_group_size, difficulty,
			price, price_discount, summary, description, image_cover, images,
			start_dates, secret, start_location, locations, guides)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING %s
	`, tourColumns)

	startLocation := models.Location{}
	if req.StartLocation != nil {
		startLocation = *req.StartLocation
	}
	locations := req.Locations
	if locations == nil {
		locations = models.LocationList{}
	}

	args := []interface{}{
		req.Name,
		models.SlugFrom(req.Name),
		req.Duration,
		req.MaxGroupSize,
		req.Difficulty,
		req.Price,
		req.PriceDiscount,
		req.Summary,
		req.Description,
		req.ImageCover,
		pq.Array(req.Images),
		pq.Array(req.StartDates),
		req.Secret,
		startLocation,
		locations,
		pq.Array(req.Guides),
	}

	start := time.Now()
	tour, err := scanTour(r.pool.QueryRowContext(ctx, query, args...))
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		return nil, utils.ParseError(err)
	}
	return tour, nil
}

// Update applies a partial update. A name change re-derives the slug.
func (r *PostgresTourRepository) Update(ctx context.Context, id int64, req *models.UpdateTourRequest) (*models.Tour, error) {
	var (
		sets []string
		args []interface{}
		idx  = 1
	)
	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if req.Name != nil {
		addSet("name", *req.Name)
		addSet("slug", models.SlugFrom(*req.Name))
	}
	if req.Duration != nil {
		addSet("duration", *req.Duration)
	}
	if req.MaxGroupSize != nil {
		addSet("max_group_size", *req.MaxGroupSize)
	}
	if req.Difficulty != nil {
		addSet("difficulty", *req.Difficulty)
	}
	if req.Price != nil {
		addSet("price", *req.Price)
	}
	if req.PriceDiscount != nil {
		addSet("price_discount", *req.PriceDiscount)
	}
	if req.Summary != nil {
		addSet("summary", *req.Summary)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.ImageCover != nil {
		addSet("image_cover", *req.ImageCover)
	}
	if req.Images != nil {
		addSet("images", pq.Array(req.Images))
	}
	if req.StartDates != nil {
		addSet("start_dates", pq.Array(req.StartDates))
	}
	if req.Secret != nil {
		addSet("secret", *req.Secret)
	}
	if req.StartLocation != nil {
		addSet("start_location", *req.StartLocation)
	}
	if req.Locations != nil {
		addSet("locations", req.Locations)
	}
	if req.Guides != nil {
		addSet("guides", pq.Array(req.Guides))
	}

	if len(sets) == 0 {
		return nil, utils.NewBadRequestError("No fields to update")
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE tours SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), idx, tourColumns,
	)
	args = append(args, id)

	start := time.Now()
	tour, err := scanTour(r.pool.QueryRowContext(ctx, query, args...))
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("tour", id)
		}
		return nil, utils.ParseError(err)
	}
	return tour, nil
}

// Delete removes a tour and, through cascading, its reviews.
func (r *PostgresTourRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tours WHERE id = $1`

	start := time.Now()
	result, err := r.pool.ExecContext(ctx, query, id)
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		return utils.ParseError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.ParseError(err)
	}
	if rowsAffected == 0 {
		return utils.NewNotFoundError("tour", id)
	}
	return nil
}

// Stats aggregates rated tours per difficulty.
func (r *PostgresTourRepository) Stats(ctx context.Context) ([]*models.TourStats, error) {
	query := `
		SELECT difficulty,
		       COUNT(*) AS num_tours,
		       COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
		       COALESCE(AVG(ratings_average), 0) AS avg_rating,
		       COALESCE(AVG(price), 0) AS avg_price,
		       COALESCE(MIN(price), 0) AS min_price,
		       COALESCE(MAX(price), 0) AS max_price
		FROM tours
		WHERE ratings_average >= $1 AND secret = FALSE
		GROUP BY difficulty
		ORDER BY avg_price ASC
	`
	args := []interface{}{constants.MinRating}

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var stats []*models.TourStats
	for rows.Next() {
		var s models.TourStats
		if err := rows.Scan(
			&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice,
		); err != nil {
			return nil, utils.ParseError(err)
		}
		s.AvgRating = models.RoundRating(s.AvgRating)
		stats = append(stats, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return stats, nil
}

// MonthlyPlan expands tour start dates for a year into a per-month report,
// busiest months first.
func (r *PostgresTourRepository) MonthlyPlan(ctx context.Context, year int) ([]*models.MonthlyPlanEntry, error) {
	query := `
		SELECT EXTRACT(MONTH FROM start_date)::int AS month,
		       COUNT(*) AS num_tour_starts,
		       ARRAY_AGG(name ORDER BY name) AS tours
		FROM tours, unnest(start_dates) AS start_date
		WHERE EXTRACT(YEAR FROM start_date) = $1 AND secret = FALSE
		GROUP BY month
		ORDER BY num_tour_starts DESC, month ASC
	`
	args := []interface{}{year}

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var plan []*models.MonthlyPlanEntry
	for rows.Next() {
		var entry models.MonthlyPlanEntry
		var tours pq.StringArray
		if err := rows.Scan(&entry.Month, &entry.NumTourStarts, &tours); err != nil {
			return nil, utils.ParseError(err)
		}
		entry.Tours = tours
		plan = append(plan, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return plan, nil
}

func sphereRadius(unit string) float64 {
	if unit == constants.UnitMiles {
		return constants.EarthRadiusMi
	}
	return constants.EarthRadiusKm
}

// Within returns tours whose start location lies inside the given radius
// around a point.
func (r *PostgresTourRepository) Within(ctx context.Context, lat, lng, distance float64, unit string) ([]*models.Tour, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM tours WHERE secret = FALSE AND %s <= $4 ORDER BY name ASC`,
		tourColumns, haversineSQL,
	)
	args := []interface{}{lat, lng, sphereRadius(unit), distance}

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var tours []*models.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, utils.ParseError(err)
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return tours, nil
}

// Distances returns every public tour with its distance from a point,
// nearest first.
func (r *PostgresTourRepository) Distances(ctx context.Context, lat, lng float64, unit string) ([]*models.TourDistance, error) {
	query := fmt.Sprintf(
		`SELECT id, name, %s AS distance FROM tours WHERE secret = FALSE ORDER BY distance ASC`,
		haversineSQL,
	)
	args := []interface{}{lat, lng, sphereRadius(unit)}

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var distances []*models.TourDistance
	for rows.Next() {
		var d models.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, utils.ParseError(err)
		}
		distances = append(distances, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return distances, nil
}
