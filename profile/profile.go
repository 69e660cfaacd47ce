// Package profile supplies user physiological profiles to the suggestion
// pipeline. Profiles are only consulted when a brand-new session is created.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mealsuggest"
)

// ErrProfileNotFound is returned when the backing source has no profile for
// the requested user.
var ErrProfileNotFound = errors.New("profile not found")

// Provider loads a user's profile.
type Provider interface {
	Load(ctx context.Context, userID string) (*mealsuggest.UserProfile, error)
}

// document is the on-disk/object shape shared by the file and S3 providers:
// a single JSON object keyed by user id.
type document struct {
	Profiles map[string]mealsuggest.UserProfile `json:"profiles"`
}

func decodeDocument(data []byte, userID string) (*mealsuggest.UserProfile, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode profiles document: %w", err)
	}
	p, ok := doc.Profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

// Static is a fixed in-memory Provider for tests and embedded use.
type Static struct {
	profiles map[string]mealsuggest.UserProfile
	err      error
}

func NewStatic(profiles map[string]mealsuggest.UserProfile) *Static {
	return &Static{profiles: profiles}
}

func NewStaticWithError(err error) *Static {
	return &Static{err: err}
}

func (s *Static) Load(ctx context.Context, userID string) (*mealsuggest.UserProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := p
	return &cp, nil
}
