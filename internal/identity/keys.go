package identity

import "strings"

// Store key layout for identity records. User documents are keyed by id;
// a separate email→id mapping document enforces email uniqueness via a
// create-only write, and credentials live under their own keys so user
// records never carry password material.
const (
	userKeyPrefix       = "user:"
	emailKeyPrefix      = "useremail:"
	credentialKeyPrefix = "credential:"
)

// UserKey returns the store key for a user document.
func UserKey(id string) string {
	return userKeyPrefix + id
}

// EmailKey returns the store key for the email→id mapping document.
func EmailKey(email string) string {
	return emailKeyPrefix + NormalizeEmail(email)
}

// CredentialKey returns the store key for a credential document.
func CredentialKey(email string) string {
	return credentialKeyPrefix + NormalizeEmail(email)
}

// NormalizeEmail lowercases and trims an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
