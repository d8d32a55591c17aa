package domain

import "time"

// TicketStatus is the workflow state of a support ticket.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// Valid reports whether the status is one of the known workflow states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is a customer support ticket.
type Ticket struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
