package models

// PurchaseRequest is the body of POST /api/tickets/purchase. The tenant
// is always taken from the caller's token, never from the body. UserID,
// if supplied, may only name the caller; buying for someone else is
// rejected.
type PurchaseRequest struct {
	EventID    int64  `json:"event_id"`
	SubEventID *int64 `json:"sub_event_id,omitempty"`
	TeamID     *int64 `json:"team_id,omitempty"`
	UserID     *int64 `json:"user_id,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateUserRequest carries the plaintext password exactly once; it is
// hashed before any row is written.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
