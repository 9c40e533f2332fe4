package graph

import "time"

// Edge records that BlockingID must be done before BlockedID may be done.
type Edge struct {
	BlockingID string    `yaml:"blocking_id" json:"blocking_id"`
	BlockedID  string    `yaml:"blocked_id" json:"blocked_id"`
	ProjectID  string    `yaml:"project_id" json:"project_id"`
	CreatedBy  string    `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt  time.Time `yaml:"created_at" json:"created_at"`
}
