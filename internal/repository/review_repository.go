package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

const reviewColumns = `r.id, r.review, r.rating, r.tour_id, r.user_id,
	r.created_at, r.updated_at, u.id, u.name, u.photo`

// ReviewRepository provides access to reviews. Every write also recomputes
// the owning tour's rating aggregate inside the same transaction, so the
// stored average and count never drift from the review rows.
type ReviewRepository interface {
	List(ctx context.Context, q *database.ListQuery, tourID int64) ([]*models.Review, error)
	GetByID(ctx context.Context, id int64) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, id int64, req *models.UpdateReviewRequest) (*models.Review, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresReviewRepository is the PostgreSQL implementation of ReviewRepository.
type PostgresReviewRepository struct {
	pool *database.Pool
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(pool *database.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pool: pool}
}

// ReviewSchema describes the listing surface for reviews.
func ReviewSchema() database.ResourceSchema {
	return database.ResourceSchema{
		Filterable: map[string]string{
			"rating": "r.rating",
			"tour":   "r.tour_id",
		},
		Sortable: map[string]string{
			"rating":    "r.rating",
			"createdAt": "r.created_at",
		},
		Selectable: map[string]string{
			"review":    "r.review",
			"rating":    "r.rating",
			"tour":      "r.tour_id",
			"createdAt": "r.created_at",
		},
		DefaultSort: "r.created_at DESC",
	}
}

func scanReview(row interface{ Scan(...interface{}) error }) (*models.Review, error) {
	var (
		review models.Review
		author models.ReviewAuthor
	)
	err := row.Scan(
		&review.ID,
		&review.Review,
		&review.Rating,
		&review.TourID,
		&review.UserID,
		&review.CreatedAt,
		&review.UpdatedAt,
		&author.ID,
		&author.Name,
		&author.Photo,
	)
	if err != nil {
		return nil, err
	}
	review.User = &author
	return &review, nil
}

// List returns reviews with their authors. A non-zero tourID narrows the
// listing to one tour, as on the nested route.
func (r *PostgresReviewRepository) List(ctx context.Context, q *database.ListQuery, tourID int64) ([]*models.Review, error) {
	filter := "TRUE"
	args := []interface{}{}
	if tourID != 0 {
		filter = "r.tour_id = $1"
		args = append(args, tourID)
	}

	where, whereArgs := q.WhereClause(len(args) + 1)
	if where != "" {
		filter += " AND " + where
		args = append(args, whereArgs...)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE %s ORDER BY %s LIMIT %d OFFSET %d
	`, reviewColumns, filter, q.OrderBy(), q.Limit, q.Offset())

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, utils.ParseError(err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return reviews, nil
}

// GetByID retrieves a review with its author.
func (r *PostgresReviewRepository) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`, reviewColumns)

	start := time.Now()
	review, err := scanReview(r.pool.QueryRowContext(ctx, query, id))
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("review", id)
		}
		return nil, utils.ParseError(err)
	}
	return review, nil
}

// Create inserts a review and refreshes the tour's aggregate in one
// transaction. A second review for the same tour by the same user violates
// the unique index and surfaces as a conflict.
func (r *PostgresReviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.pool.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO reviews (review, rating, tour_id, user_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`
		args := []interface{}{review.Review, review.Rating, review.TourID, review.UserID}

		start := time.Now()
		err := tx.QueryRowContext(ctx, query, args...).
			Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
		utils.LogDBQuery(query, args, time.Since(start), err)
		if err != nil {
			return err
		}

		return recalcTourRatings(ctx, tx, review.TourID)
	})
	if err != nil {
		return utils.ParseError(err)
	}
	return nil
}

// Update edits a review's text or rating and refreshes the tour aggregate.
func (r *PostgresReviewRepository) Update(ctx context.Context, id int64, req *models.UpdateReviewRequest) (*models.Review, error) {
	if req.Review == nil && req.Rating == nil {
		return nil, utils.NewBadRequestError("No fields to update")
	}

	var tourID int64
	err := r.pool.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE reviews
			SET review = COALESCE($1, review),
			    rating = COALESCE($2, rating),
			    updated_at = NOW()
			WHERE id = $3
			RETURNING tour_id
		`
		args := []interface{}{req.Review, req.Rating, id}

		start := time.Now()
		err := tx.QueryRowContext(ctx, query, args...).Scan(&tourID)
		utils.LogDBQuery(query, args, time.Since(start), err)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.NewNotFoundError("review", id)
			}
			return err
		}

		return recalcTourRatings(ctx, tx, tourID)
	})
	if err != nil {
		return nil, utils.ParseError(err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a review and refreshes the tour aggregate. Deleting the
// last review reverts the tour to its default rating.
func (r *PostgresReviewRepository) Delete(ctx context.Context, id int64) error {
	err := r.pool.Transaction(ctx, func(tx *sql.Tx) error {
		query := `DELETE FROM reviews WHERE id = $1 RETURNING tour_id`

		var tourID int64
		start := time.Now()
		err := tx.QueryRowContext(ctx, query, id).Scan(&tourID)
		utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.NewNotFoundError("review", id)
			}
			return err
		}

		return recalcTourRatings(ctx, tx, tourID)
	})
	if err != nil {
		return utils.ParseError(err)
	}
	return nil
}

// recalcTourRatings writes the review aggregate back onto the tour. With no
// reviews left the tour reverts to the default average and a zero count.
func recalcTourRatings(ctx context.Context, tx *sql.Tx, tourID int64) error {
	query := `
		UPDATE tours SET
			ratings_quantity = agg.quantity,
			ratings_average = agg.average,
			updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS quantity,
			       COALESCE(ROUND(AVG(rating)::numeric, 1), $2) AS average
			FROM reviews WHERE tour_id = $1
		) AS agg
		WHERE tours.id = $1
	`
	args := []interface{}{tourID, constants.DefaultRatingsAverage}

	start := time.Now()
	_, err := tx.ExecContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	return err
}
