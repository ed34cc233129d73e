package repository

import "github.com/lib/pq"

// pqError builds a driver error with the given SQLSTATE code, as the
// postgres driver would surface it.
func pqError(code, constraint string) *pq.Error {
	return &pq.Error{
		Code:       pq.ErrorCode(code),
		Constraint: constraint,
	}
}
