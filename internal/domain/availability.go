package domain

import "time"

// Cached availability states.
const (
	AvailabilityTaken     = "taken"
	AvailabilityAvailable = "available"
)

// A taken name is a durable fact and ages slowly; an available verdict may
// stem from an index false positive and must be re-derived often.
const (
	TakenTTL     = 5 * time.Minute
	AvailableTTL = time.Minute
)

const (
	ReasonAvailable   = "Username is available"
	ReasonTaken       = "Username is already taken"
	ReasonCheckFailed = "Error checking username availability"
)

// Availability is the verdict for a single username.
type Availability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Reason    string `json:"message"`
}

type CheckUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}
