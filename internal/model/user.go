// Package model defines the data structures shared by the BlogNode client and server.
// In Go, we use structs to represent our data. The `json:"..."` struct tags define
// the wire and storage format: the same JSON shape is sent to the server and kept
// in the client's persistent store.
package model

import (
	"strings"
	"time"
)

// Known social link providers. Any other key is dropped by SocialLinks.Normalize.
const (
	SocialTwitter  = "twitter"
	SocialGitHub   = "github"
	SocialLinkedIn = "linkedin"
	SocialWebsite  = "website"
)

// SocialLinks maps a provider name to a handle or URL.
type SocialLinks map[string]string

// KnownSocialProviders lists the providers a profile may link to.
var KnownSocialProviders = []string{SocialTwitter, SocialGitHub, SocialLinkedIn, SocialWebsite}

// Normalize returns a copy restricted to known providers with empty values removed.
// A nil result means "no links".
func (l SocialLinks) Normalize() SocialLinks {
	if len(l) == 0 {
		return nil
	}
	out := make(SocialLinks, len(l))
	for _, p := range KnownSocialProviders {
		if v := strings.TrimSpace(l[p]); v != "" {
			out[p] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UserProfile is the durable record describing one user's identity and public profile.
//
// The client keeps exactly one of these in its persistent store while logged in.
// Optional fields use omitempty so an absent avatar or bio is not written at all,
// which keeps the stored record identical to what the user actually supplied.
type UserProfile struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Email       string      `json:"email"`
	Avatar      string      `json:"avatar,omitempty"`
	Bio         string      `json:"bio,omitempty"`
	SocialLinks SocialLinks `json:"socialLinks,omitempty"`
}

// Clone returns a deep copy so callers can never mutate session state through a
// returned pointer.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.SocialLinks != nil {
		c.SocialLinks = make(SocialLinks, len(u.SocialLinks))
		for k, v := range u.SocialLinks {
			c.SocialLinks[k] = v
		}
	}
	return &c
}

// ProfileUpdate carries a partial profile. A nil field means "leave unchanged".
//
// A pointer to "" clears the field.
type ProfileUpdate struct {
	Username    *string     `json:"username,omitempty"`
	DisplayName *string     `json:"displayName,omitempty"`
	Avatar      *string     `json:"avatar,omitempty"`
	Bio         *string     `json:"bio,omitempty"`
	// No omitempty: null leaves links alone, {} clears them.
	SocialLinks SocialLinks `json:"socialLinks"`
}

// IsEmpty reports whether the update would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Username == nil && p.DisplayName == nil && p.Avatar == nil &&
		p.Bio == nil && p.SocialLinks == nil
}

// ApplyTo returns a copy of u with every supplied field overwritten.
// The social links mapping is replaced as a whole, not merged key by key.
func (p ProfileUpdate) ApplyTo(u *UserProfile) *UserProfile {
	merged := u.Clone()
	if p.Username != nil {
		merged.Username = *p.Username
	}
	if p.DisplayName != nil {
		merged.DisplayName = *p.DisplayName
	}
	if p.Avatar != nil {
		merged.Avatar = *p.Avatar
	}
	if p.Bio != nil {
		merged.Bio = *p.Bio
	}
	if p.SocialLinks != nil {
		merged.SocialLinks = p.SocialLinks.Normalize()
	}
	return merged
}

// Registration is the input of a sign-up: email and password are required,
// everything else is optional profile data.
type Registration struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Username    string      `json:"username,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	Bio         string      `json:"bio,omitempty"`
	SocialLinks SocialLinks `json:"socialLinks,omitempty"`
}

// Account is the server-side record behind a UserProfile.
//
// PasswordHash is tagged json:"-" so it can never leak into an API response.
// GitHubID is zero for accounts created with email and password.
type Account struct {
	UserProfile
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email so uniqueness checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
