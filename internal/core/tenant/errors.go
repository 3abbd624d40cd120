package tenant

import "errors"

var (
	// ErrClubNotFound is returned when club does not exist in meta-database.
	ErrClubNotFound = errors.New("club not found")

	// ErrClubNotActive is returned when club exists but is not active.
	ErrClubNotActive = errors.New("club is not active")

	// ErrMaxPoolLimit is returned when tenant manager reached pool limit.
	ErrMaxPoolLimit = errors.New("max tenant pool limit reached")
)
