package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/repositories"
)

// Recognized ExternalServiceCredential service kinds.
const (
	ServiceKindSimulator  = "simulator"
	ServiceKindDraftOrder = "draft_order"
	ServiceKindSeeding    = "seeding"
)

var validServiceKinds = map[string]bool{
	ServiceKindSimulator:  true,
	ServiceKindDraftOrder: true,
	ServiceKindSeeding:    true,
}

// CredentialsService handles secure credential storage for a dynasty's
// remote GameSimulator/DraftOrderService/PlayoffSeedingService deployments.
// Encrypted at rest with an AES-GCM envelope, keyed by dynasty + service kind.
type CredentialsService struct {
	repo          repositories.CredentialRepository
	encryptionKey []byte
}

// NewCredentialsService creates a new credentials service with encryption
func NewCredentialsService(repo repositories.CredentialRepository, encryptionKey string) (*CredentialsService, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes")
	}
	return &CredentialsService{
		repo:          repo,
		encryptionKey: []byte(encryptionKey),
	}, nil
}

// StoreCredential encrypts and stores a remote service's base URL and API key
func (s *CredentialsService) StoreCredential(ctx context.Context, dynasty, serviceKind, baseURL, apiKey string) error {
	if err := s.validate(serviceKind, baseURL, apiKey); err != nil {
		return err
	}

	encrypted, err := s.encrypt([]byte(apiKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	cred := &models.ExternalServiceCredential{
		ID:              uuid.New(),
		Dynasty:         dynasty,
		ServiceKind:     serviceKind,
		BaseURL:         baseURL,
		EncryptedAPIKey: []byte(encrypted),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	return s.repo.Store(ctx, cred)
}

// GetCredential retrieves and decrypts a dynasty's service connection info
func (s *CredentialsService) GetCredential(ctx context.Context, dynasty, serviceKind string) (baseURL, apiKey string, err error) {
	cred, err := s.repo.GetByDynastyAndKind(ctx, dynasty, serviceKind)
	if err != nil {
		return "", "", err
	}

	decrypted, err := s.decrypt(string(cred.EncryptedAPIKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt api key: %w", err)
	}

	return cred.BaseURL, string(decrypted), nil
}

// UpdateCredential replaces an existing service connection's base URL/key
func (s *CredentialsService) UpdateCredential(ctx context.Context, dynasty, serviceKind, baseURL, apiKey string) error {
	if err := s.validate(serviceKind, baseURL, apiKey); err != nil {
		return err
	}

	existing, err := s.repo.GetByDynastyAndKind(ctx, dynasty, serviceKind)
	if err != nil {
		return err
	}

	encrypted, err := s.encrypt([]byte(apiKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	existing.BaseURL = baseURL
	existing.EncryptedAPIKey = []byte(encrypted)
	existing.UpdatedAt = time.Now()

	return s.repo.Update(ctx, existing)
}

// DeleteCredential removes a dynasty's service connection
func (s *CredentialsService) DeleteCredential(ctx context.Context, dynasty, serviceKind string) error {
	return s.repo.Delete(ctx, dynasty, serviceKind)
}

// CheckCredentialExpiry reports whether a credential is more than a year
// old and due for rotation; the engine does not expire credentials itself.
func (s *CredentialsService) CheckCredentialExpiry(ctx context.Context, dynasty, serviceKind string) (bool, time.Time, error) {
	cred, err := s.repo.GetByDynastyAndKind(ctx, dynasty, serviceKind)
	if err != nil {
		return false, time.Time{}, err
	}

	rotateBy := cred.CreatedAt.Add(365 * 24 * time.Hour)
	isExpiring := rotateBy.Before(time.Now().Add(7 * 24 * time.Hour))
	return isExpiring, rotateBy, nil
}

func (s *CredentialsService) validate(serviceKind, baseURL, apiKey string) error {
	if !validServiceKinds[serviceKind] {
		return fmt.Errorf("unrecognized service kind %q", serviceKind)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return fmt.Errorf("base_url must be a valid absolute URL: %w", err)
	}
	if len(apiKey) < 16 {
		return fmt.Errorf("api key appears to be invalid (too short)")
	}
	return nil
}

// encrypt encrypts data using AES-GCM
func (s *CredentialsService) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts data using AES-GCM
func (s *CredentialsService) decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
