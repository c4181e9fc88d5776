package opportunity

import (
	"time"

	"attachke/internal/common"
)

type Type string

const (
	TypeInternship Type = "internship"
	TypeAttachment Type = "industrial-attachment"
	TypeBoth       Type = "both"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
	StatusDeleted  Status = "deleted"
)

// Source records where a listing came from: created by an admin or imported
// from one of the external job feeds.
type Source string

const (
	SourceManual Source = "manual"
	SourceAdzuna Source = "adzuna"
	SourceJooble Source = "jooble"
)

type Opportunity struct {
	ID           common.UUID  `json:"id"`
	Company      string       `json:"company"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Type         Type         `json:"type"`
	Category     string       `json:"category"`
	Location     string       `json:"location"`
	Duration     string       `json:"duration"`
	Requirements []string     `json:"requirements"`
	Benefits     []string     `json:"benefits"`
	Positions    int          `json:"positions"`
	Deadline     time.Time    `json:"application_deadline"`
	Stipend      string       `json:"stipend,omitempty"`
	ApplyURL     string       `json:"apply_url,omitempty"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	PostedBy     *common.UUID `json:"posted_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Filter struct {
	Type     Type
	Category string
	Location string
	Search   string
	Status   Status
	Limit    int
	Offset   int
}
