// Package models defines the data structures used across the application.
// Records are persisted as JSON documents in the key-value store.
package models

import "time"

// Role identifies the account type of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Supported preference values. The server only persists these; rendering
// and translation happen on the client.
const (
	LanguageEnglish = "en"
	LanguageHindi   = "hi"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User represents a registered citizen or administrator account.
// Email is the natural key: lookups go through a separate email→id
// mapping document so uniqueness can be enforced at write time.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Mobile            string    `json:"mobile,omitempty"`
	Role              Role      `json:"role"`
	PreferredLanguage string    `json:"preferredLanguage"`
	Theme             string    `json:"theme"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is a known complaint status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Categories a complaint can be filed under.
const (
	CategoryRoads          = "roads"
	CategoryWater          = "water"
	CategorySewage         = "sewage"
	CategoryGarbage        = "garbage"
	CategoryStreetLight    = "streetLight"
	CategoryPublicHealth   = "publicHealth"
	CategoryInfrastructure = "infrastructure"
	CategoryOthers         = "others"
)

// Categories lists every valid complaint category in display order.
var Categories = []string{
	CategoryRoads,
	CategoryWater,
	CategorySewage,
	CategoryGarbage,
	CategoryStreetLight,
	CategoryPublicHealth,
	CategoryInfrastructure,
	CategoryOthers,
}

// ValidCategory reports whether c is a known complaint category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MessageType distinguishes who authored a thread message.
type MessageType string

const (
	MessageUser  MessageType = "user"
	MessageAdmin MessageType = "admin"
)

// Message is a single entry in a complaint's response thread.
// Messages are immutable once appended; slice order is chronological.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	AdminID   string      `json:"adminId,omitempty"`
}

// Complaint is a citizen-submitted grievance record.
// Photos are base64 data URLs (3 to 5 required at submission).
// Status and Messages are mutated only through admin responses.
type Complaint struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Photos      []string  `json:"photos"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Messages    []Message `json:"messages"`
}

// LatestMessage returns the most recent thread message, or nil if the
// thread is empty.
func (c *Complaint) LatestMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// StatusStats holds per-status complaint counts for the admin dashboard.
type StatusStats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Rejected   int `json:"rejected"`
	Total      int `json:"total"`
}

// CategoryCount is a single bar in the category distribution chart.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// AuditEntry records an administrative action for accountability.
type AuditEntry struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId,omitempty"`
	Action      string    `json:"action"`
	ActorID     string    `json:"actorId"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MerkleProof contains the inclusion proof for a specific complaint leaf.
type MerkleProof struct {
	LeafHash string      `json:"leaf_hash"`
	Root     string      `json:"root"`
	Proof    []ProofStep `json:"proof"`
	Index    int         `json:"index"`
	Verified bool        `json:"verified"`
}

// ProofStep is a single step in a Merkle proof path.
type ProofStep struct {
	Hash     string `json:"hash"`
	Position string `json:"position"` // "left" | "right"
}

// HealthStatus represents the server health check response.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Store   string `json:"store,omitempty"`
}
