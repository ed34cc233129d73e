package models

import "time"

// ReviewAuthor is the subset of user fields embedded in a review response.
type ReviewAuthor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Review is a rating with optional text, written by one user about one
// tour. A user can review a tour at most once.
type Review struct {
	ID        int64         `json:"id"`
	Review    string        `json:"review"`
	Rating    float64       `json:"rating"`
	TourID    int64         `json:"tour"`
	UserID    int64         `json:"-"`
	User      *ReviewAuthor `json:"user,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// CreateReviewRequest is the payload for writing a review. Tour and user
// are usually implied by the nested route and the session; an explicit
// tour id in the body is only honored on the flat route.
type CreateReviewRequest struct {
	Review string  `json:"review" validate:"required"`
	Rating float64 `json:"rating" validate:"required,gte=1,lte=5"`
	TourID int64   `json:"tour,omitempty"`
}

// UpdateReviewRequest is the payload for editing a review. The tour and
// author of a review never change.
type UpdateReviewRequest struct {
	Review *string  `json:"review,omitempty"`
	Rating *float64 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

// RatingSummary is the aggregate a tour carries after a review change.
type RatingSummary struct {
	RatingsAverage  float64 `json:"ratingsAverage"`
	RatingsQuantity int     `json:"ratingsQuantity"`
}
