package models

import (
	"strings"
	"time"
)

// LeadStatus is the position of a lead in the sales pipeline
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusWon       LeadStatus = "won"
)

// LeadStatuses lists every status in pipeline display order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusLost,
	LeadStatusWon,
}

// leadTransitions is only consulted when strict transitions are enabled.
var leadTransitions = map[LeadStatus]map[LeadStatus]bool{
	LeadStatusNew:       {LeadStatusContacted: true, LeadStatusQualified: true, LeadStatusLost: true, LeadStatusWon: true},
	LeadStatusContacted: {LeadStatusQualified: true, LeadStatusLost: true, LeadStatusWon: true},
	LeadStatusQualified: {LeadStatusLost: true, LeadStatusWon: true},
	LeadStatusLost:      {},
	LeadStatusWon:       {},
}

// ParseLeadStatus accepts a status in any letter case. Empty input yields
// LeadStatusNew.
func ParseLeadStatus(s string) (LeadStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LeadStatusNew, true
	}
	status := LeadStatus(s)
	return status, status.Valid()
}

func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// Label is the human readable status name.
func (s LeadStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusWon || s == LeadStatusLost
}

// CanTransition reports whether a lead may move from one status to another
// under the strict pipeline. Keeping the current status is always allowed.
func CanTransition(from, to LeadStatus) bool {
	if from == to {
		return to.Valid()
	}
	if from.IsTerminal() {
		return false
	}
	return leadTransitions[from][to]
}

// Lead is a sale opportunity tied to exactly one customer
type Lead struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`

	Title  string     `gorm:"size:100;not null" json:"title"`
	Status LeadStatus `gorm:"size:20;not null;default:new;index" json:"status"`

	// Assignee is optional and is cleared when the user is removed
	AssignedToID *uint `gorm:"index" json:"assigned_to_id"`
	AssignedTo   *User `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to,omitempty"`

	FollowUpDate *Date  `gorm:"index" json:"follow_up_date"`
	Notes        string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"<-:create" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
