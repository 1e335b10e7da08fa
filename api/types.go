package api

// Ticket statuses as the CRM reports them.
const (
	TicketOpen     = 2
	TicketPending  = 3
	TicketResolved = 4
)

// Contact identifies a caller in the CRM.
type Contact struct {
	ID    int64
	Name  string
	Phone string
}

// Ticket is a previously opened support ticket, offered to the caller as a
// candidate for the issue they are calling about.
type Ticket struct {
	ID      int64
	Subject string
	Status  int
}

// Article is a single knowledge-base search hit.
type Article struct {
	Title string
	Body  string
}
