package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// NINResult is the outcome of an external identity lookup.
type NINResult struct {
	Matched  bool
	FullName string
	Raw      map[string]any
}

// NINVerifier is the interface for an external national-identity provider.
type NINVerifier interface {
	Verify(ctx context.Context, nin, fullName, dob, phone string) (*NINResult, error)
}

// KorapayConfig carries the explicit configuration for the Korapay
// identity client.
type KorapayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// KorapayClient verifies NINs against the Korapay identity API.
type KorapayClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewKorapayClient creates a new Korapay identity client.
func NewKorapayClient(cfg KorapayConfig) *KorapayClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &KorapayClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// Verify calls the Korapay NIN endpoint and compares the returned record
// against the user's claim.
func (c *KorapayClient) Verify(ctx context.Context, nin, fullName, dob, phone string) (*NINResult, error) {
	body, err := json.Marshal(map[string]string{"id": nin})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identities/ng/nin", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("korapay: upstream status %d", resp.StatusCode)
	}

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			BirthDate string `json:"birth_date"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	returned := strings.TrimSpace(payload.Data.FirstName + " " + payload.Data.LastName)
	matched := payload.Status &&
		strings.EqualFold(returned, strings.TrimSpace(fullName)) &&
		(dob == "" || payload.Data.BirthDate == dob)

	return &NINResult{
		Matched:  matched,
		FullName: returned,
		Raw: map[string]any{
			"status":     payload.Status,
			"first_name": payload.Data.FirstName,
			"last_name":  payload.Data.LastName,
			"birth_date": payload.Data.BirthDate,
			"http_code":  resp.StatusCode,
		},
	}, nil
}

// VerificationService runs identity verification with a provider-outage
// fallback: when the external lookup cannot be reached, the user's claim
// is accepted as self-attested, a distinct status from verified, and the
// attempt is logged either way.
type VerificationService struct {
	verifier         NINVerifier
	profileRepo      repository.ProfileRepository
	verificationRepo repository.VerificationRepository
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	verifier NINVerifier,
	profileRepo repository.ProfileRepository,
	verificationRepo repository.VerificationRepository,
) *VerificationService {
	return &VerificationService{
		verifier:         verifier,
		profileRepo:      profileRepo,
		verificationRepo: verificationRepo,
	}
}

// VerifyRequest contains the user's identity claim.
type VerifyRequest struct {
	UserID   string
	NIN      string
	FullName string
	DOB      string
	Phone    string
}

// VerifyOutcome reports the verification status reached.
type VerifyOutcome struct {
	Status  domain.VerificationStatus
	Matched bool
}

// Verify runs one verification attempt for a user.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (*VerifyOutcome, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if strings.TrimSpace(req.NIN) == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, ErrInvalidUserID
	}

	if _, err := s.profileRepo.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := map[string]any{
		"nin":       req.NIN,
		"full_name": req.FullName,
		"dob":       req.DOB,
		"phone":     req.Phone,
	}

	result, err := s.verifier.Verify(ctx, req.NIN, req.FullName, req.DOB, req.Phone)
	if err != nil {
		// Provider outage. Record the attempt and accept the claim as
		// self-attested so ticket sales do not stop with the provider.
		log.Printf("[VERIFICATION] provider unavailable for user %s: %v", req.UserID, err)
		s.logAttempt(ctx, req, domain.ProviderSelfAttested, request, map[string]any{"error": err.Error()}, true, now)

		if err := s.profileRepo.UpdateVerification(ctx, req.UserID, domain.VerificationSelfAttested, req.NIN, req.FullName, req.DOB, req.Phone, now); err != nil {
			return nil, err
		}
		return &VerifyOutcome{Status: domain.VerificationSelfAttested}, nil
	}

	s.logAttempt(ctx, req, domain.ProviderKorapay, request, result.Raw, result.Matched, now)

	if !result.Matched {
		return &VerifyOutcome{Status: domain.VerificationUnverified, Matched: false}, nil
	}

	if err := s.profileRepo.UpdateVerification(ctx, req.UserID, domain.VerificationVerified, req.NIN, req.FullName, req.DOB, req.Phone, now); err != nil {
		return nil, err
	}
	return &VerifyOutcome{Status: domain.VerificationVerified, Matched: true}, nil
}

func (s *VerificationService) logAttempt(ctx context.Context, req VerifyRequest, provider domain.VerificationProvider, request, response map[string]any, success bool, at time.Time) {
	attempt := &domain.NINVerification{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		NIN:             req.NIN,
		Provider:        provider,
		RequestPayload:  request,
		ResponsePayload: response,
		Success:         success,
		CreatedAt:       at,
	}
	if err := s.verificationRepo.Append(ctx, attempt); err != nil {
		log.Printf("[VERIFICATION] attempt log failed for user %s: %v", req.UserID, err)
	}
}
