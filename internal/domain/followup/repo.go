package followup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups that match no row. Cross-tenant reads
// surface it too, so callers cannot distinguish "not yours" from "not there".
var ErrNotFound = errors.New("not found")

// ListFilter narrows a clinic's follow-up listing. Nil fields are ignored.
type ListFilter struct {
	Status   *Status
	DueStart *time.Time
	DueEnd   *time.Time
}

// Summary holds the unfiltered per-clinic counts shown on the dashboard.
type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Done    int `json:"done"`
}

// Repository defines the persistence interface for follow-ups and their view
// logs. Every staff-facing method takes the caller's clinic ID; only the
// public-token lookup is global, because the token itself is the capability.
type Repository interface {
	Create(ctx context.Context, f *FollowUp) error
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*FollowUp, error)
	Update(ctx context.Context, f *FollowUp) error
	UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, status Status) (*FollowUp, error)
	Count(ctx context.Context, clinicID uuid.UUID, filter ListFilter) (int, error)
	List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*FollowUp, error)
	ListAll(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]*FollowUp, error)
	Summary(ctx context.Context, clinicID uuid.UUID) (*Summary, error)
	GetByToken(ctx context.Context, token string) (*FollowUp, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	AddViewLog(ctx context.Context, log *PublicViewLog) error
}
