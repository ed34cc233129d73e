// Package scripts provides utility scripts for database management.
//
// It implements database seeding that populates initial data required in
// a fresh installation. Seeds are tracked like migrations so they run
// exactly once, making the process safe on existing databases.
package scripts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
)

// Seeder handles database seeding.
type Seeder struct {
	db          *database.Pool
	passwordCfg *auth.PasswordConfig
}

// NewSeeder creates a new seeder.
func NewSeeder(db *database.Pool, passwordCfg *auth.PasswordConfig) *Seeder {
	return &Seeder{db: db, passwordCfg: passwordCfg}
}

// SeedDatabase seeds the database with initial data. It creates the seeds
// tracking table if needed, then runs all seed functions that have not
// been executed yet.
func (s *Seeder) SeedDatabase(ctx context.Context) error {
	log.Info().Msg("Seeding database")
	startTime := time.Now()

	if err := s.createSeedsTable(ctx); err != nil {
		return fmt.Errorf("failed to create seeds table: %w", err)
	}

	executed, err := s.getExecutedSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed seeds: %w", err)
	}

	seeds := []struct {
		Name     string
		SeedFunc func(ctx context.Context, tx *sql.Tx) error
	}{
		{"admin_user", s.seedAdminUser},
		{"sample_tours", s.seedSampleTours},
	}

	for _, seed := range seeds {
		if executed[seed.Name] {
			log.Debug().Str("seed", seed.Name).Msg("Seed already executed")
			continue
		}
		log.Info().Str("seed", seed.Name).Msg("Running seed")
		if err := s.runSeed(ctx, seed.Name, seed.SeedFunc); err != nil {
			return err
		}
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Database seeding completed")

	return nil
}

func (s *Seeder) createSeedsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS seeds (
			name VARCHAR(255) PRIMARY KEY,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *Seeder) getExecutedSeeds(ctx context.Context) (map[string]bool, error) {
	query := `SELECT name FROM seeds`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	seeds := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		seeds[name] = true
	}

	return seeds, rows.Err()
}

// runSeed runs a seed function and records it within one transaction.
func (s *Seeder) runSeed(ctx context.Context, name string, seedFunc func(ctx context.Context, tx *sql.Tx) error) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := seedFunc(ctx, tx); err != nil {
			return fmt.Errorf("seed %s failed: %w", name, err)
		}

		query := `INSERT INTO seeds (name) VALUES ($1)`
		if _, err := tx.ExecContext(ctx, query, name); err != nil {
			return fmt.Errorf("failed to record seed: %w", err)
		}

		return nil
	})
}

// seedAdminUser creates the initial admin account when no admin exists.
// The password must be rotated after first login.
func (s *Seeder) seedAdminUser(ctx context.Context, tx *sql.Tx) error {
	var count int
	countQuery := `SELECT COUNT(*) FROM users WHERE role = $1`
	if err := tx.QueryRowContext(ctx, countQuery, constants.RoleAdmin).Scan(&count); err != nil {
		return fmt.Errorf("failed to count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, salt, err := auth.HashPassword("changeme-now", s.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	query := `
		INSERT INTO users (name, email, role, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, query, "Administrator", "admin@tourbook.local", constants.RoleAdmin, hash, salt)
	return err
}

// seedSampleTours inserts a small catalogue so a fresh development
// instance has something to browse.
func (s *Seeder) seedSampleTours(ctx context.Context, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count tours: %w", err)
	}
	if count > 0 {
		return nil
	}

	tours := []struct {
		Name         string
		Duration     int
		MaxGroupSize int
		Difficulty   string
		Price        float64
		Summary      string
	}{
		{"The Forest Hiker", 5, 25, constants.DifficultyEasy, 397, "Breathtaking hike through the Canadian Banff National Park"},
		{"The Sea Explorer", 7, 15, constants.DifficultyMedium, 497, "Exploring the jaw-dropping US east coast by foot and by boat"},
		{"The Snow Adventurer", 4, 10, constants.DifficultyDifficult, 997, "Exciting adventure in the snow with snowboarding and skiing"},
	}

	query := `
		INSERT INTO tours (name, slug, duration, max_group_size, difficulty, price, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, t := range tours {
		_, err := tx.ExecContext(ctx, query,
			t.Name, models.SlugFrom(t.Name), t.Duration, t.MaxGroupSize, t.Difficulty, t.Price, t.Summary)
		if err != nil {
			return fmt.Errorf("failed to insert tour %s: %w", t.Name, err)
		}
	}

	return nil
}
