// Package draft persists in-progress application form values between page
// loads. Absence of a stored draft means "no draft in progress".
package draft

import (
	"context"

	"permit-portal/internal/models"
)

// KeyPrefix is the fixed key family for stored drafts; the session id is
// appended to scope drafts per citizen session.
const KeyPrefix = "permitFormData"

// Store is the durable draft storage contract. Single writer, single reader,
// last write wins.
type Store interface {
	// Load returns the stored draft, or (nil, nil) when none exists.
	Load(ctx context.Context, sessionID string) (models.ApplicationDraft, error)
	// Save overwrites the stored draft for the session.
	Save(ctx context.Context, sessionID string, d models.ApplicationDraft) error
	// Clear removes the stored draft, if any.
	Clear(ctx context.Context, sessionID string) error
}
