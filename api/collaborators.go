package api

import "context"

// CRM is the ticketing backend the call engine reports into. Implementations
// wrap a concrete helpdesk product; the engine only cares about when these are
// invoked and with what arguments, never about transport details.
//
// Every method is expected to be safe to call from background goroutines. A
// failed CRM call is logged by the caller and degrades the conversation (a
// later turn simply sees a missing contact or ticket), it is never surfaced
// to the caller as an error.
type CRM interface {
	// LookupContactByPhone finds the contact for a caller number. The boolean
	// reports whether a contact matched; absence is a valid state, not an error.
	LookupContactByPhone(ctx context.Context, phone string) (Contact, bool, error)

	// CreateContact registers a placeholder contact for an unknown caller.
	CreateContact(ctx context.Context, name, phone string) (Contact, error)

	// UpdateContactName renames a contact once the caller identifies themselves.
	UpdateContactName(ctx context.Context, contactID int64, name string) error

	// RecentTickets lists the contact's open or pending tickets,
	// most recent first, capped at limit.
	RecentTickets(ctx context.Context, contactID int64, limit int) ([]Ticket, error)

	// CreateTicket opens a ticket for the reported issue and returns its id.
	// The sentiment hint feeds the ticket's tags.
	CreateTicket(ctx context.Context, requesterID int64, phone, description, sentiment string) (int64, error)

	// ResolveTicket marks the ticket resolved.
	ResolveTicket(ctx context.Context, ticketID int64) error

	// AddNote attaches a private note (the call transcript) to the ticket.
	AddNote(ctx context.Context, ticketID int64, body string) error
}

// Knowledge searches the help-article knowledge base.
type Knowledge interface {
	Search(ctx context.Context, term string) ([]Article, error)
}

// Community searches the community forum as a fallback source and returns a
// raw text blob of whatever it found.
type Community interface {
	Search(ctx context.Context, issue string) (string, error)
}

// CompletionRequest is a single bounded text generation request.
type CompletionRequest struct {
	// Instructions is the system instruction block.
	Instructions string
	// Prompt is the user-context block for this turn.
	Prompt string
	// Temperature bounds sampling randomness.
	Temperature float64
	// MaxTokens bounds the generated length.
	MaxTokens int64
}

// Conversationalist generates the agent's reply text. Implementations wrap a
// language-model endpoint; an empty or failed generation is returned as an
// error so callers can fall back to a live-agent transfer.
type Conversationalist interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Telephony is the outbound control surface of the call transport. Spoken
// prompts travel back to the transport inside a Reply; Transfer and Hangup are
// the only operations the engine initiates on its own.
type Telephony interface {
	// Transfer bridges the caller to a live agent number.
	Transfer(ctx context.Context, callID, to, from string) error

	// Hangup terminates the call. The directive executor schedules this after
	// the farewell has had time to play, never immediately.
	Hangup(ctx context.Context, callID string) error
}
