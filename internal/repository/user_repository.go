package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

// userColumns are the fields loaded for account handling. Listing endpoints
// use userPublicColumns so credential material never leaves the repository
// unless explicitly needed.
const (
	userColumns = `id, name, email, photo, role, password_hash, salt,
		password_changed_at, password_reset_token, password_reset_expires,
		active, created_at, updated_at`

	userPublicColumns = `id, name, email, photo, role, created_at, updated_at`
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDAny(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, hashedToken string) (*models.User, error)
	List(ctx context.Context, q *database.ListQuery) ([]*models.User, error)
	Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, req *models.UpdateMeRequest) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error
	SetResetToken(ctx context.Context, id int64, hashedToken string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	ClearExpiredResetTokens(ctx context.Context) (int64, error)
}

// PostgresUserRepository is the PostgreSQL implementation of UserRepository.
type PostgresUserRepository struct {
	pool *database.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *database.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// UserSchema describes the listing surface for user accounts. Credential
// columns are deliberately absent.
func UserSchema() database.ResourceSchema {
	return database.ResourceSchema{
		Filterable: map[string]string{
			"name":  "name",
			"email": "email",
			"role":  "role",
		},
		Sortable: map[string]string{
			"name":      "name",
			"email":     "email",
			"role":      "role",
			"createdAt": "created_at",
		},
		Selectable: map[string]string{
			"name":      "name",
			"email":     "email",
			"photo":     "photo",
			"role":      "role",
			"createdAt": "created_at",
		},
		DefaultSort: "created_at DESC",
	}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Photo,
		&user.Role,
		&user.PasswordHash,
		&user.Salt,
		&user.PasswordChangedAt,
		&user.PasswordResetToken,
		&user.PasswordResetExpires,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user account.
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, photo, role, password_hash, salt, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	args := []interface{}{
		user.Name, user.Email, user.Photo, user.Role,
		user.PasswordHash, user.Salt, true,
	}

	start := time.Now()
	err := r.pool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		return utils.ParseError(err)
	}
	user.Active = true
	return nil
}

// GetByID retrieves a user by ID. Deactivated accounts are reported as
// not found.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND active = TRUE`, userColumns)

	start := time.Now()
	user, err := scanUser(r.pool.QueryRowContext(ctx, query, id))
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("user", id)
		}
		return nil, utils.ParseError(err)
	}
	return user, nil
}

// GetByIDAny retrieves a user by ID regardless of the active flag. The
// admin read path uses it; deactivated accounts stay inspectable there.
func (r *PostgresUserRepository) GetByIDAny(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	start := time.Now()
	user, err := scanUser(r.pool.QueryRowContext(ctx, query, id))
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("user", id)
		}
		return nil, utils.ParseError(err)
	}
	return user, nil
}

// GetByEmail retrieves an active user by email, including credentials for
// password verification.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND active = TRUE`, userColumns)

	start := time.Now()
	user, err := scanUser(r.pool.QueryRowContext(ctx, query, email))
	utils.LogDBQuery(query, []interface{}{email}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("user", email)
		}
		return nil, utils.ParseError(err)
	}
	return user, nil
}

// GetByResetToken retrieves the user holding an unexpired reset token.
func (r *PostgresUserRepository) GetByResetToken(ctx context.Context, hashedToken string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > NOW() AND active = TRUE
	`, userColumns)

	start := time.Now()
	user, err := scanUser(r.pool.QueryRowContext(ctx, query, hashedToken))
	utils.LogDBQuery(query, []interface{}{hashedToken}, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewBadRequestError("Token is invalid or has expired")
		}
		return nil, utils.ParseError(err)
	}
	return user, nil
}

// List returns active users shaped by the listing query.
func (r *PostgresUserRepository) List(ctx context.Context, q *database.ListQuery) ([]*models.User, error) {
	where, args := q.WhereClause(1)
	filter := "active = TRUE"
	if where != "" {
		filter += " AND " + where
	}

	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		userPublicColumns, filter, q.OrderBy(), q.Limit, q.Offset(),
	)

	start := time.Now()
	rows, err := r.pool.QueryContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)
	if err != nil {
		return nil, utils.ParseError(err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Photo, &user.Role,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, utils.ParseError(err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.ParseError(err)
	}
	return users, nil
}

// Update applies an admin-level update to a user.
func (r *PostgresUserRepository) Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {
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
	}
	if req.Email != nil {
		addSet("email", models.NormalizeEmail(*req.Email))
	}
	if req.Photo != nil {
		addSet("photo", *req.Photo)
	}
	if req.Role != nil {
		addSet("role", *req.Role)
	}
	if req.Active != nil {
		addSet("active", *req.Active)
	}

	if len(sets) == 0 {
		return nil, utils.NewBadRequestError("No fields to update")
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), idx, userColumns,
	)
	args = append(args, id)

	start := time.Now()
	user, err := scanUser(r.pool.QueryRowContext(ctx, query, args...))
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("user", id)
		}
		return nil, utils.ParseError(err)
	}
	return user, nil
}

// UpdateProfile applies a self-service profile update. Only name, email and
// photo can change here; credential and role columns are untouchable.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id int64, req *models.UpdateMeRequest) (*models.User, error) {
	update := &models.UpdateUserRequest{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	}
	return r.Update(ctx, id, update)
}

// UpdatePassword replaces a user's credentials and stamps the change time,
// invalidating tokens issued before it.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error {
	query := `
		UPDATE users
		SET password_hash = $1, salt = $2, password_changed_at = NOW(),
		    password_reset_token = NULL, password_reset_expires = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`
	args := []interface{}{passwordHash, salt, id}

	start := time.Now()
	result, err := r.pool.ExecContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		return utils.ParseError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.ParseError(err)
	}
	if rowsAffected == 0 {
		return utils.NewNotFoundError("user", id)
	}
	return nil
}

// SetResetToken stores a hashed password reset token with its expiry.
func (r *PostgresUserRepository) SetResetToken(ctx context.Context, id int64, hashedToken string, expires time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $1, password_reset_expires = $2, updated_at = NOW()
		WHERE id = $3
	`
	args := []interface{}{hashedToken, expires, id}

	start := time.Now()
	result, err := r.pool.ExecContext(ctx, query, args...)
	utils.LogDBQuery(query, args, time.Since(start), err)

	if err != nil {
		return utils.ParseError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.ParseError(err)
	}
	if rowsAffected == 0 {
		return utils.NewNotFoundError("user", id)
	}
	return nil
}

// ClearResetToken removes a stored reset token, e.g. after a failed email send.
func (r *PostgresUserRepository) ClearResetToken(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = NOW()
		WHERE id = $1
	`

	start := time.Now()
	_, err := r.pool.ExecContext(ctx, query, id)
	utils.LogDBQuery(query, []interface{}{id}, time.Since(start), err)

	if err != nil {
		return utils.ParseError(err)
	}
	return nil
}

// Deactivate soft-deletes an account. The row stays for referential
// integrity but the user disappears from every read path.
func (r *PostgresUserRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE`

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
		return utils.NewNotFoundError("user", id)
	}
	return nil
}

// Delete permanently removes an account. Admin only.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

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
		return utils.NewNotFoundError("user", id)
	}
	return nil
}

// ClearExpiredResetTokens wipes reset tokens past their expiry. Run by the
// maintenance loop.
func (r *PostgresUserRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_expires IS NOT NULL AND password_reset_expires < NOW()
	`

	start := time.Now()
	result, err := r.pool.ExecContext(ctx, query)
	utils.LogDBQuery(query, nil, time.Since(start), err)

	if err != nil {
		return 0, utils.ParseError(err)
	}
	return result.RowsAffected()
}
