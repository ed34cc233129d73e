package migrations

import (
	"context"
	"database/sql"
)

// createUsersTable creates the users table
func createUsersTable() Migration {
	return Migration{
		Name:        "create_users_table",
		Description: "Creates the users table",
		TableName:   "users",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(100) NOT NULL,
					email VARCHAR(255) NOT NULL,
					photo VARCHAR(255) NOT NULL DEFAULT 'default.jpeg',
					role VARCHAR(20) NOT NULL DEFAULT 'user',
					password_hash VARCHAR(255) NOT NULL,
					salt VARCHAR(255) NOT NULL,
					password_changed_at TIMESTAMP,
					password_reset_token VARCHAR(255),
					password_reset_expires TIMESTAMP,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT users_email_key UNIQUE (email),
					CONSTRAINT users_role_check CHECK (role IN ('user', 'guide', 'lead-guide', 'admin'))
				);
				CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(password_reset_token)
					WHERE password_reset_token IS NOT NULL;
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}

// createToursTable creates the tours table
func createToursTable() Migration {
	return Migration{
		Name:        "create_tours_table",
		Description: "Creates the tours table",
		TableName:   "tours",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS tours (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(40) NOT NULL,
					slug VARCHAR(60) NOT NULL,
					duration INT NOT NULL,
					max_group_size INT NOT NULL,
					difficulty VARCHAR(20) NOT NULL,
					ratings_average NUMERIC(3,1) NOT NULL DEFAULT 4.5,
					ratings_quantity INT NOT NULL DEFAULT 0,
					price NUMERIC(10,2) NOT NULL,
					price_discount NUMERIC(10,2),
					summary TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					image_cover VARCHAR(255) NOT NULL DEFAULT '',
					images TEXT[] NOT NULL DEFAULT '{}',
					start_dates TIMESTAMP[] NOT NULL DEFAULT '{}',
					secret BOOLEAN NOT NULL DEFAULT FALSE,
					start_location JSONB,
					locations JSONB NOT NULL DEFAULT '[]',
					guides BIGINT[] NOT NULL DEFAULT '{}',
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT tours_name_key UNIQUE (name),
					CONSTRAINT tours_slug_key UNIQUE (slug),
					CONSTRAINT tours_difficulty_check CHECK (difficulty IN ('easy', 'medium', 'difficult')),
					CONSTRAINT tours_price_check CHECK (price > 0),
					CONSTRAINT tours_discount_check CHECK (price_discount IS NULL OR price_discount < price)
				);
				CREATE INDEX IF NOT EXISTS idx_tours_price_ratings ON tours(price, ratings_average DESC);
				CREATE INDEX IF NOT EXISTS idx_tours_slug ON tours(slug);
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}

// createReviewsTable creates the reviews table
func createReviewsTable() Migration {
	return Migration{
		Name:        "create_reviews_table",
		Description: "Creates the reviews table",
		TableName:   "reviews",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS reviews (
					id BIGSERIAL PRIMARY KEY,
					review TEXT NOT NULL,
					rating NUMERIC(2,1) NOT NULL,
					tour_id BIGINT NOT NULL,
					user_id BIGINT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT fk_reviews_tour FOREIGN KEY (tour_id) REFERENCES tours(id) ON DELETE CASCADE,
					CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
					CONSTRAINT reviews_tour_user_key UNIQUE (tour_id, user_id),
					CONSTRAINT reviews_rating_check CHECK (rating >= 1 AND rating <= 5)
				);
				CREATE INDEX IF NOT EXISTS idx_reviews_tour_id ON reviews(tour_id);
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}
