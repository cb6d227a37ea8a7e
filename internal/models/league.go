package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ExternalServiceCredential stores encrypted connection info for a
// per-dynasty remote GameSimulator/DraftOrderService/PlayoffSeedingService
// deployment. Adapted from the teacher's ESPN League/LeagueAuth rows: same
// AES-GCM envelope, generalized from a fantasy "platform" to an engine
// "service kind" (simulator, draft_order, seeding).
type ExternalServiceCredential struct {
	ID                   uuid.UUID      `json:"id" db:"id"`
	Dynasty              string         `json:"dynasty" db:"dynasty_id"`
	ServiceKind          string         `json:"service_kind" db:"service_kind"`
	BaseURL              string         `json:"base_url" db:"base_url"`
	EncryptedAPIKey      []byte         `json:"-" db:"encrypted_api_key"`
	EncryptedAPIKeyCheck sql.NullString `json:"-" db:"encrypted_api_key_check"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}
