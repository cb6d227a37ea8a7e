package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nfl-analytics/backend/internal/database"
	"github.com/nfl-analytics/backend/internal/models"
)

var (
	ErrCredentialNotFound = errors.New("external service credential not found")
)

// CredentialRepository stores per-dynasty encrypted connection info for a
// remote GameSimulator/DraftOrderService/PlayoffSeedingService deployment.
type CredentialRepository interface {
	Store(ctx context.Context, cred *models.ExternalServiceCredential) error
	GetByDynastyAndKind(ctx context.Context, dynasty, serviceKind string) (*models.ExternalServiceCredential, error)
	Update(ctx context.Context, cred *models.ExternalServiceCredential) error
	Delete(ctx context.Context, dynasty, serviceKind string) error
	GetAllByDynasty(ctx context.Context, dynasty string) ([]*models.ExternalServiceCredential, error)
}

// postgresCredentialRepository implements CredentialRepository using PostgreSQL
type postgresCredentialRepository struct {
	db *sql.DB
}

// NewPostgresCredentialRepository creates a new PostgreSQL credential repository
func NewPostgresCredentialRepository(db *database.PostgresDB) CredentialRepository {
	return &postgresCredentialRepository{db: db.DB}
}

// Store creates or replaces a dynasty's credential for a service kind
func (r *postgresCredentialRepository) Store(ctx context.Context, cred *models.ExternalServiceCredential) error {
	query := `
		INSERT INTO external_service_credentials (id, dynasty_id, service_kind, base_url, encrypted_api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (dynasty_id, service_kind) DO UPDATE SET
		base_url = EXCLUDED.base_url,
		encrypted_api_key = EXCLUDED.encrypted_api_key,
		updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		cred.ID,
		cred.Dynasty,
		cred.ServiceKind,
		cred.BaseURL,
		cred.EncryptedAPIKey,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	return err
}

// GetByDynastyAndKind retrieves a credential by dynasty and service kind
func (r *postgresCredentialRepository) GetByDynastyAndKind(ctx context.Context, dynasty, serviceKind string) (*models.ExternalServiceCredential, error) {
	query := `
		SELECT id, dynasty_id, service_kind, base_url, encrypted_api_key, created_at, updated_at
		FROM external_service_credentials
		WHERE dynasty_id = $1 AND service_kind = $2`

	cred := &models.ExternalServiceCredential{}
	err := r.db.QueryRowContext(ctx, query, dynasty, serviceKind).Scan(
		&cred.ID,
		&cred.Dynasty,
		&cred.ServiceKind,
		&cred.BaseURL,
		&cred.EncryptedAPIKey,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

// Update replaces the stored credential for a dynasty/service kind pair
func (r *postgresCredentialRepository) Update(ctx context.Context, cred *models.ExternalServiceCredential) error {
	query := `
		UPDATE external_service_credentials
		SET base_url = $1, encrypted_api_key = $2, updated_at = $3
		WHERE dynasty_id = $4 AND service_kind = $5`

	result, err := r.db.ExecContext(ctx, query,
		cred.BaseURL,
		cred.EncryptedAPIKey,
		time.Now(),
		cred.Dynasty,
		cred.ServiceKind,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// Delete removes a dynasty's credential for a service kind
func (r *postgresCredentialRepository) Delete(ctx context.Context, dynasty, serviceKind string) error {
	query := `DELETE FROM external_service_credentials WHERE dynasty_id = $1 AND service_kind = $2`
	result, err := r.db.ExecContext(ctx, query, dynasty, serviceKind)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// GetAllByDynasty lists every service credential a dynasty has configured
func (r *postgresCredentialRepository) GetAllByDynasty(ctx context.Context, dynasty string) ([]*models.ExternalServiceCredential, error) {
	query := `
		SELECT id, dynasty_id, service_kind, base_url, encrypted_api_key, created_at, updated_at
		FROM external_service_credentials
		WHERE dynasty_id = $1
		ORDER BY service_kind`

	rows, err := r.db.QueryContext(ctx, query, dynasty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*models.ExternalServiceCredential
	for rows.Next() {
		cred := &models.ExternalServiceCredential{}
		err := rows.Scan(
			&cred.ID,
			&cred.Dynasty,
			&cred.ServiceKind,
			&cred.BaseURL,
			&cred.EncryptedAPIKey,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return creds, nil
}
