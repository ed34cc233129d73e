package repository

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

func setupTourRepo(t *testing.T) (*PostgresTourRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTourRepository(database.NewPool(db)), mock
}

func tourRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "slug", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "price_discount",
		"summary", "description", "image_cover", "images", "start_dates",
		"secret", "start_location", "locations", "guides", "created_at", "updated_at",
	})
}

func addTourRow(rows *sqlmock.Rows, id int64, name string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, name, models.SlugFrom(name), 7, 15, "easy",
		4.66666, 3, 497.0, nil,
		"A short trip", "", "cover.jpg", []byte("{}"), []byte("{}"),
		false, []byte(`{"type":"Point","coordinates":[-80.18,25.77]}`), []byte("[]"),
		[]byte("{}"), now, now,
	)
}

func TestTourGetByID(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM tours WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(addTourRow(tourRows(), 1, "The Forest Hiker"))

	tour, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "The Forest Hiker", tour.Name)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	// Derived fields are filled on load
	assert.Equal(t, 1.0, tour.DurationWeeks)
	assert.Equal(t, 4.7, tour.RatingsAverage)
	assert.Equal(t, -80.18, tour.StartLocation.Longitude())
}

func TestTourGetByID_NotFound(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM tours WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(tourRows())

	_, err := repo.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestTourGuideDetails(t *testing.T) {
	repo, mock := setupTourRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "photo", "role"}).
		AddRow(int64(3), "Leo Gillespie", "leo@example.com", "leo.jpeg", "guide").
		AddRow(int64(4), "Kate Morrison", "kate@example.com", "", "lead-guide")
	mock.ExpectQuery(`SELECT id, name, email, photo, role FROM users\s+WHERE id = ANY\(\$1\) AND active = TRUE`).
		WillReturnRows(rows)

	guides, err := repo.GuideDetails(context.Background(), []int64{3, 4})
	require.NoError(t, err)
	require.Len(t, guides, 2)
	assert.Equal(t, "Leo Gillespie", guides[0].Name)
	assert.Equal(t, "lead-guide", guides[1].Role)
}

func TestTourGuideDetails_NoGuides(t *testing.T) {
	repo, _ := setupTourRepo(t)

	guides, err := repo.GuideDetails(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, guides)
}

func TestTourList_HidesSecretTours(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM tours WHERE secret = FALSE ORDER BY created_at DESC`).
		WillReturnRows(addTourRow(tourRows(), 1, "The Forest Hiker"))

	q, err := database.ParseListQuery(url.Values{}, TourSchema())
	require.NoError(t, err)

	tours, err := repo.List(context.Background(), q, false)
	require.NoError(t, err)
	assert.Len(t, tours, 1)
}

func TestTourList_FilterAndSort(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`WHERE secret = FALSE AND difficulty = \$1 AND price <= \$2 ORDER BY price ASC LIMIT 5 OFFSET 0`).
		WithArgs("easy", "1500").
		WillReturnRows(addTourRow(tourRows(), 1, "The Forest Hiker"))

	values := url.Values{}
	values.Set("difficulty", "easy")
	values.Set("price[lte]", "1500")
	values.Set("sort", "price")
	values.Set("limit", "5")

	q, err := database.ParseListQuery(values, TourSchema())
	require.NoError(t, err)

	tours, err := repo.List(context.Background(), q, false)
	require.NoError(t, err)
	assert.Len(t, tours, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTourList_PageBeyondEnd(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM tours WHERE secret = FALSE`).
		WillReturnRows(tourRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tours`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	values := url.Values{}
	values.Set("page", "5")
	values.Set("limit", "10")

	q, err := database.ParseListQuery(values, TourSchema())
	require.NoError(t, err)

	_, err = repo.List(context.Background(), q, false)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestTourList_EmptyFirstPageIsFine(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM tours WHERE secret = FALSE`).
		WillReturnRows(tourRows())

	q, err := database.ParseListQuery(url.Values{}, TourSchema())
	require.NoError(t, err)

	tours, err := repo.List(context.Background(), q, false)
	require.NoError(t, err)
	assert.Empty(t, tours)
}

func TestTourCreate_DerivesSlug(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`INSERT INTO tours`).
		WithArgs(
			"The Sea Explorer", "the-sea-explorer", 7, 15, "medium",
			497.0, nil, "Exploring the coast", "", "cover.jpg",
			sqlmock.AnyArg(), sqlmock.AnyArg(), false,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(addTourRow(tourRows(), 2, "The Sea Explorer"))

	tour, err := repo.Create(context.Background(), &models.CreateTourRequest{
		Name:         "The Sea Explorer",
		Duration:     7,
		MaxGroupSize: 15,
		Difficulty:   "medium",
		Price:        497.0,
		Summary:      "Exploring the coast",
		ImageCover:   "cover.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), tour.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTourUpdate_NameChangeUpdatesSlug(t *testing.T) {
	repo, mock := setupTourRepo(t)
	name := "The New Name Tour"

	mock.ExpectQuery(`UPDATE tours SET name = \$1, slug = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs(name, "the-new-name-tour", int64(1)).
		WillReturnRows(addTourRow(tourRows(), 1, name))

	tour, err := repo.Update(context.Background(), 1, &models.UpdateTourRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "the-new-name-tour", tour.Slug)
}

func TestTourDelete_NotFound(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectExec(`DELETE FROM tours`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestTourStats(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`GROUP BY difficulty`).
		WithArgs(1.0).
		WillReturnRows(sqlmock.NewRows([]string{
			"difficulty", "num_tours", "num_ratings", "avg_rating", "avg_price", "min_price", "max_price",
		}).
			AddRow("easy", 4, 120, 4.66666, 397.0, 197.0, 697.0).
			AddRow("difficult", 2, 40, 4.2, 997.0, 897.0, 1097.0))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "easy", stats[0].Difficulty)
	assert.Equal(t, 4.7, stats[0].AvgRating, "average is rounded to one decimal")
	assert.Equal(t, 120, stats[0].NumRatings)
}

func TestTourMonthlyPlan(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`unnest\(start_dates\)`).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"month", "num_tour_starts", "tours"}).
			AddRow(7, 3, []byte(`{"The Forest Hiker","The Sea Explorer","The Star Gazer"}`)).
			AddRow(3, 2, []byte(`{"The City Wanderer","The Forest Hiker"}`)))

	plan, err := repo.MonthlyPlan(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, 7, plan[0].Month)
	assert.Equal(t, 3, plan[0].NumTourStarts)
	assert.Equal(t, []string{"The Forest Hiker", "The Sea Explorer", "The Star Gazer"}, plan[0].Tours)
}

func TestTourWithin_UsesUnitRadius(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`FROM tours WHERE secret = FALSE AND`).
		WithArgs(25.77, -80.18, 3959.0, 200.0).
		WillReturnRows(addTourRow(tourRows(), 1, "The Forest Hiker"))

	tours, err := repo.Within(context.Background(), 25.77, -80.18, 200.0, "mi")
	require.NoError(t, err)
	assert.Len(t, tours, 1)
}

func TestTourDistances(t *testing.T) {
	repo, mock := setupTourRepo(t)

	mock.ExpectQuery(`ORDER BY distance ASC`).
		WithArgs(25.77, -80.18, 6371.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "distance"}).
			AddRow(int64(1), "The Forest Hiker", 12.5).
			AddRow(int64(2), "The Sea Explorer", 430.2))

	distances, err := repo.Distances(context.Background(), 25.77, -80.18, "km")
	require.NoError(t, err)
	require.Len(t, distances, 2)
	assert.Equal(t, 12.5, distances[0].Distance)
}
