package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionRefunded SubscriptionStatus = "refunded"
)

type Role string

const (
	RoleNormal  Role = "normal"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// Account is the per-user ledger document. Balance never goes negative at the
// store layer; counters only grow except for the weekly window reset.
type Account struct {
	UID                   string
	Balance               int
	SubscriptionStatus    SubscriptionStatus
	SubscriptionProductID string
	Role                  Role
	Email                 string
	Name                  string
	TotalGenerated        int
	WeeklyGenerated       int
	WeekStartDate         *time.Time
	LastTokenAdd          *time.Time
	CreatedAt             time.Time
	LastUpdated           time.Time
}

// Transaction event tags.
const (
	EventDeduction          = "deduction"
	EventSubscription       = "subscription"
	EventSubscriptionRefill = "subscription_refill"
	EventTokenPack          = "token_pack"
	EventWelcomeBonus       = "welcome_bonus"
)

// Transaction is an append-only audit record owned by an account. Writing one
// is best-effort: a failed insert never aborts the mutation it describes.
type Transaction struct {
	ID          int64
	UID         string
	Event       string
	Amount      int
	Description string
	CreatedAt   time.Time
}

// GeneratedImage records one successfully produced image. Prompts keeps the
// ordered history of prompts applied to the image.
type GeneratedImage struct {
	ID        string
	UserID    string
	ImageURL  string
	FileName  string
	Prompts   []string
	CreatedAt time.Time
}

// Pack is an ordered collection of prompts applied to one base image.
type Pack struct {
	ID        string
	Name      string
	Prompts   []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Suggestion is one aesthetic transformation offered to the client.
type Suggestion struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// WebhookEvent is the transient shape of a purchase-provider notification.
// Delivery is at least once; nothing about it is persisted.
type WebhookEvent struct {
	Type      string
	UserID    string
	ProductID string
}
