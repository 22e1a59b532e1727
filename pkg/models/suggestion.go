package models

import "time"

// SuggestionStatus is the review state of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "Pending"
	SuggestionApproved  SuggestionStatus = "Approved"
	SuggestionDenied    SuggestionStatus = "Denied"
	SuggestionCompleted SuggestionStatus = "Completed"
)

// CanTransition reports whether a suggestion may move from s to next.
// Only pending suggestions are reviewed and only approved ones get completed.
func (s SuggestionStatus) CanTransition(next SuggestionStatus) bool {
	switch s {
	case SuggestionPending:
		return next == SuggestionApproved || next == SuggestionDenied
	case SuggestionApproved:
		return next == SuggestionCompleted
	default:
		return false
	}
}

// Suggestion is a user idea submitted for staff review.
type Suggestion struct {
	ID        int64            `db:"id" bson:"_id" json:"id"`
	UserID    string           `db:"user_id" bson:"userId" json:"userId"`
	Text      string           `db:"suggestion" bson:"suggestion" json:"suggestion"`
	Status    SuggestionStatus `db:"status" bson:"status" json:"status"`
	ChannelID string           `db:"channel_id" bson:"channelId" json:"channelId"`
	CreatedAt time.Time        `db:"created_at" bson:"createdAt" json:"createdAt"`
}
