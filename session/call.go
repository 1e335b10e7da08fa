package session

import (
	"strings"
	"sync"
	"time"

	"github.com/casualjim/strix/api"
)

const (
	// maxHistoryTurns bounds the transcript kept for the end-of-call ticket note.
	maxHistoryTurns = 50
	// maxIssueChars bounds the accumulated issue description; the trailing
	// window is kept, oldest text dropped.
	maxIssueChars = 2000
	// MaxKnowledgeAttempts caps knowledge-base queries per call.
	MaxKnowledgeAttempts = 2
)

// Turn is one transcript entry, caller or agent.
type Turn struct {
	Role    string
	Content string
}

// Call is the mutable per-call record. One exists per active phone call,
// created on call start and destroyed on call end or idle eviction.
//
// Events for a single call normally arrive sequentially from the transport,
// but retried webhooks can overlap, so Lock serializes access. Fields are only
// touched while the lock is held, except through the Lookup* methods which
// have their own synchronization.
type Call struct {
	mu sync.Mutex

	// ID is the opaque call identifier supplied by the transport.
	ID string
	// Phone is the caller's number, BotNumber the number they dialed.
	Phone     string
	BotNumber string

	// Contact is nil until the background CRM lookup completes or misses.
	Contact *api.Contact
	// CandidateTickets are the contact's recent open tickets, most recent
	// first. TicketCursor indexes the next candidate to offer; it only moves
	// forward.
	CandidateTickets []api.Ticket
	TicketCursor     int

	Stage        Stage
	SilenceCount int

	// IssueDescription accumulates the caller's own words about the problem.
	IssueDescription string
	// LastAnswer is the most recent spoken solution, kept for "repeat" and as
	// follow-up context. LastSnippet is the matching raw knowledge text.
	LastAnswer  string
	LastSnippet string

	KnowledgeAttempts int
	CommunitySearched bool

	// ActiveTicketID is the ticket created or adopted during this call.
	ActiveTicketID int64
	// Sentiment is the model's read of the caller's mood, default Neutral.
	Sentiment string

	history []Turn

	lookupOnce sync.Once
	lookupDone chan struct{}

	lastSeen time.Time
}

func newCall(id string) *Call {
	return &Call{
		ID:         id,
		Stage:      StageAskedBefore,
		Sentiment:  "Neutral",
		lookupDone: make(chan struct{}),
		lastSeen:   time.Now(),
	}
}

// Lock serializes event handling for this call. Unlock releases it.
func (c *Call) Lock()   { c.mu.Lock() }
func (c *Call) Unlock() { c.mu.Unlock() }

// Touch records activity for idle eviction. Callers hold the lock.
func (c *Call) Touch(now time.Time) { c.lastSeen = now }

// IdleSince reports the time of the last activity.
func (c *Call) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// AppendIssue adds the utterance to the accumulated issue description,
// keeping only the trailing window once the cap is exceeded.
func (c *Call) AppendIssue(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if c.IssueDescription == "" {
		c.IssueDescription = text
	} else {
		c.IssueDescription += " " + text
	}
	if over := len(c.IssueDescription) - maxIssueChars; over > 0 {
		c.IssueDescription = c.IssueDescription[over:]
	}
}

// AppendTurn records a transcript entry, keeping the last maxHistoryTurns.
func (c *Call) AppendTurn(role, content string) {
	c.history = append(c.history, Turn{Role: role, Content: content})
	if len(c.history) > maxHistoryTurns {
		c.history = c.history[len(c.history)-maxHistoryTurns:]
	}
}

// History returns a copy of the transcript so far.
func (c *Call) History() []Turn {
	out := make([]Turn, len(c.history))
	copy(out, c.history)
	return out
}

// CurrentCandidate returns the candidate ticket under the cursor, if any.
func (c *Call) CurrentCandidate() (api.Ticket, bool) {
	if c.TicketCursor < 0 || c.TicketCursor >= len(c.CandidateTickets) {
		return api.Ticket{}, false
	}
	return c.CandidateTickets[c.TicketCursor], true
}

// AdvanceCursor moves to the next candidate ticket and reports whether one
// remains. The cursor never moves backwards and never runs past the end.
func (c *Call) AdvanceCursor() bool {
	if c.TicketCursor < len(c.CandidateTickets) {
		c.TicketCursor++
	}
	return c.TicketCursor < len(c.CandidateTickets)
}

// FinishLookup publishes the background CRM lookup result and wakes any
// waiter. Safe to call more than once; only the first call wins.
func (c *Call) FinishLookup(contact *api.Contact, tickets []api.Ticket) {
	c.lookupOnce.Do(func() {
		c.mu.Lock()
		c.Contact = contact
		c.CandidateTickets = tickets
		c.mu.Unlock()
		close(c.lookupDone)
	})
}

// WaitLookup blocks until the background lookup finishes, the grace period
// expires, or ctx is done. It reports whether the lookup completed.
func (c *Call) WaitLookup(grace time.Duration) bool {
	select {
	case <-c.lookupDone:
		return true
	case <-time.After(grace):
		return false
	}
}

// LookupFinished reports whether the background lookup has completed.
func (c *Call) LookupFinished() bool {
	select {
	case <-c.lookupDone:
		return true
	default:
		return false
	}
}
