package models

import "time"

// BlockRequestStatus is the block-request lifecycle state. PENDING requests
// are the only ones an admin may process; APPROVED and REJECTED are final.
type BlockRequestStatus string

const (
	BlockRequestPending  BlockRequestStatus = "PENDING"
	BlockRequestApproved BlockRequestStatus = "APPROVED"
	BlockRequestRejected BlockRequestStatus = "REJECTED"
)

// CardBlockRequest is a user's request to have one of their cards blocked,
// processed by an admin with a comment.
type CardBlockRequest struct {
	ID           int64              `json:"id"`
	CardID       int64              `json:"card_id"`
	UserID       int64              `json:"user_id"`
	AdminID      *int64             `json:"admin_id,omitempty"`
	Status       BlockRequestStatus `json:"status"`
	AdminComment string             `json:"admin_comment,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
}
