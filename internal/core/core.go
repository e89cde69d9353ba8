package core

import "time"

// Category is the fixed set of suggestion categories.
type Category string

const (
	CategoryRoads     Category = "Roads"
	CategoryPower     Category = "Power"
	CategoryWater     Category = "Water"
	CategorySecurity  Category = "Security"
	CategoryHealth    Category = "Health"
	CategoryEducation Category = "Education"
	CategoryOther     Category = "Other"
)

// Categories lists all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryRoads,
		CategoryPower,
		CategoryWater,
		CategorySecurity,
		CategoryHealth,
		CategoryEducation,
		CategoryOther,
	}
}

// ValidCategory reports whether s is one of the fixed categories.
func ValidCategory(s string) bool {
	for _, c := range Categories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Sentiment is the discrete sentiment label for a suggestion.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ValidSentiment reports whether s is one of the three sentiment labels.
func ValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// OperationKind identifies one kind of AI operation for metrics tracking.
type OperationKind string

const (
	OpEmbedding      OperationKind = "embedding"
	OpCategorize     OperationKind = "categorize"
	OpSummarize      OperationKind = "summarize"
	OpSentiment      OperationKind = "sentiment"
	OpDuplicateCheck OperationKind = "duplicate_check"
)

// ProviderID identifies an AI provider. ProviderFallback is a synthetic
// identity used to tag metrics for local deterministic logic.
type ProviderID string

const (
	ProviderGemini     ProviderID = "gemini"
	ProviderGroq       ProviderID = "groq"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderFallback   ProviderID = "fallback"
)

// OperationRecord is one row of the append-only AI metrics log. Records are
// never mutated or deleted once written.
type OperationRecord struct {
	ID           string        `json:"id"`
	Operation    OperationKind `json:"operation"`
	Provider     ProviderID    `json:"provider"`
	Success      bool          `json:"success"`
	ResponseTime time.Duration `json:"response_time"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SuggestionStatus values follow the moderation lifecycle.
const (
	StatusPending    = "pending"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is a known suggestion status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress, StatusResolved, StatusCompleted:
		return true
	}
	return false
}

// Suggestion is a resident-submitted community suggestion after the AI
// pipeline has run. Embedding may be empty when the embedding provider was
// unavailable at submission time.
type Suggestion struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Category    Category  `json:"category"`
	Summary     string    `json:"summary"`
	Sentiment   Sentiment `json:"sentiment"`
	IsAnonymous bool      `json:"is_anonymous"`
	ContactInfo string    `json:"contact_info,omitempty"`
	Location    string    `json:"location,omitempty"`
	Area        string    `json:"area,omitempty"`
	Status      string    `json:"status"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	Embedding   []float64 `json:"-"`
	AuthorID    string    `json:"author_id,omitempty"`
	CanEdit     bool      `json:"can_edit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a registered resident or administrator.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Location        string    `json:"location,omitempty"`
	ReputationScore int       `json:"reputation_score"`
	IsActive        bool      `json:"is_active"`
	IsAdmin         bool      `json:"is_admin"`
	CreatedAt       time.Time `json:"created_at"`
}

// Comment is a public comment on a suggestion.
type Comment struct {
	ID           string    `json:"id"`
	SuggestionID string    `json:"suggestion_id"`
	Text         string    `json:"text"`
	UserName     string    `json:"user_name"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Vote directions.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Vote is one up/down vote on a suggestion. SessionID identifies anonymous
// voters; UserID is set for authenticated ones.
type Vote struct {
	ID           string    `json:"id"`
	SuggestionID string    `json:"suggestion_id"`
	UserID       string    `json:"user_id,omitempty"`
	VoteType     string    `json:"vote_type"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Bookmark marks a suggestion a resident wants to follow. Like votes,
// SessionID identifies anonymous residents.
type Bookmark struct {
	ID           string    `json:"id"`
	SuggestionID string    `json:"suggestion_id"`
	UserID       string    `json:"user_id,omitempty"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusChange records one admin transition in a suggestion's lifecycle.
type StatusChange struct {
	ID            string    `json:"id"`
	SuggestionID  string    `json:"suggestion_id"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	AdminResponse string    `json:"admin_response,omitempty"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Announcement is an admin-published notice shown to residents.
type Announcement struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"image_url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CommunityArea is a named neighborhood suggestions can be tagged with.
type CommunityArea struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
