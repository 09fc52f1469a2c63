package models

import (
	"time"
)

// SchemaVersion identifies the record shape produced by the crawler and stored
// by the repository: officers are captured and filing events carry an absolute
// document URL rather than an effective date.
const SchemaVersion = 1

// Business represents a business registration record from the state registry.
// FilingNumber is the registry's natural key; Name is not unique.
// Nullable fields use pointers to distinguish between zero values and NULL.
type Business struct {
	CreatedAt              time.Time     `json:"createdAt"`
	UpdatedAt              time.Time     `json:"updatedAt"`
	FilingDate             *time.Time    `json:"filingDate,omitempty"`
	Name                   string        `json:"name"`
	FilingNumber           string        `json:"filingNumber"`
	Status                 string        `json:"status"`
	StateOfFormation       string        `json:"stateOfFormation"`
	PrincipalAddress       string        `json:"principalAddress"`
	MailingAddress         string        `json:"mailingAddress"`
	RegisteredAgentName    string        `json:"registeredAgentName"`
	RegisteredAgentAddress string        `json:"registeredAgentAddress"`
	Officers               []Officer     `json:"officers"`
	FilingHistory          []FilingEvent `json:"filingHistory"`
	ID                     int64         `json:"id"`
}

// TableName returns the table backing Business rows.
func (Business) TableName() string {
	return "businesses"
}

// IsActive reports whether the registry status reads "active".
func (b *Business) IsActive() bool {
	return IsActiveStatus(b.Status)
}

// Officer is an officer or director listed on a business detail page.
// It has no identity beyond (business, name, title).
type Officer struct {
	CreatedAt  time.Time `json:"createdAt"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	ID         int64     `json:"id"`
	BusinessID int64     `json:"businessId"`
}

// TableName returns the table backing Officer rows.
func (Officer) TableName() string {
	return "officers"
}

// FilingEvent is one row of a business's filing history ("Document Images").
type FilingEvent struct {
	CreatedAt   time.Time  `json:"createdAt"`
	FilingDate  *time.Time `json:"filingDate,omitempty"`
	FilingType  string     `json:"filingType"`
	DocumentURL string     `json:"documentUrl,omitempty"`
	ID          int64      `json:"id"`
	BusinessID  int64      `json:"businessId"`
}

// TableName returns the table backing FilingEvent rows.
func (FilingEvent) TableName() string {
	return "filing_history"
}
