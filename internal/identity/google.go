// Package identity verifies third-party sign-in credentials.
package identity

import (
	"context"
	"errors"
	"strings"

	apperrors "finwise/internal/errors"

	"google.golang.org/api/idtoken"
)

// Profile is the verified identity carried by a third-party credential.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Verifier turns a raw credential into a verified Profile.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Profile, error)
}

// GoogleVerifier validates Google ID tokens issued for a single client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier returns a verifier for the given OAuth client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify implements Verifier.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Profile, error) {
	if v.clientID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrNotConfigured, "Google sign-in is not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credential is required")
	}

	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidIDToken, err)
	}

	profile, err := profileFromPayload(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidIDToken, err)
	}
	return profile, nil
}

func profileFromPayload(payload *idtoken.Payload) (*Profile, error) {
	if payload.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("token has no email claim")
	}

	verified, _ := payload.Claims["email_verified"].(bool)
	if !verified {
		return nil, errors.New("email is not verified")
	}

	name, _ := payload.Claims["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	return &Profile{
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          strings.TrimSpace(name),
	}, nil
}
