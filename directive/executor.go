package directive

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/internal/dispatch"
	"github.com/casualjim/strix/pkg/clockx"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/session"
	"github.com/fogfish/opts"
)

// transferDelay lets the acknowledgment play before the API-side bridge.
const transferDelay = 2 * time.Second

// Effects is what a batch of directives asks the transport to do with this
// turn, beyond the background work already dispatched.
type Effects struct {
	// Transfer is the destination number when a transfer was requested.
	Transfer string
	// Hangup reports that teardown has been scheduled; Delay is when.
	Hangup bool
	Delay  time.Duration
	// Hold asks for a longer listening window on the next turn.
	Hold bool
}

// Executor applies parsed directives: session mutations happen inline (the
// caller holds the call lock), collaborator side effects are dispatched as
// background work so the caller hears the spoken reply without waiting, and
// call teardown is deferred until the farewell has had time to play.
type Executor struct {
	crm    api.CRM
	telco  api.Telephony
	runner *dispatch.Runner

	clock       clockx.Clock
	agentNumber string
}

var (
	// WithClock substitutes the scheduling clock, for tests.
	WithClock = opts.ForName[Executor, clockx.Clock]("clock")
	// WithAgentNumber sets the default live-agent transfer destination.
	WithAgentNumber = opts.ForName[Executor, string]("agentNumber")
)

// NewExecutor wires an executor to its collaborators.
func NewExecutor(crm api.CRM, telco api.Telephony, runner *dispatch.Runner, options ...opts.Option[Executor]) *Executor {
	e := &Executor{
		crm:    crm,
		telco:  telco,
		runner: runner,
		clock:  clockx.Real{},
	}
	if err := opts.Apply(e, options); err != nil {
		panic(err)
	}
	return e
}

// Apply executes directives in the order found. farewell is the spoken text
// of the turn, used to size the hangup delay. The caller holds the call lock.
func (e *Executor) Apply(ctx context.Context, call *session.Call, ds []Directive, farewell string) Effects {
	var eff Effects
	for _, d := range ds {
		switch d.Kind {
		case KindCreateTicket:
			e.createTicket(call, d.Payload)
		case KindUseTicket:
			e.adoptTicket(call, d.Payload)
		case KindResolveTicket:
			e.resolveTicket(call, d.Payload)
		case KindTransfer:
			eff.Transfer = e.ScheduleTransfer(call, d.Payload)
		case KindHangup:
			eff.Hangup = true
			eff.Delay = e.ScheduleHangup(call.ID, farewell)
		case KindUpdateName:
			e.updateName(call, d.Payload)
		case KindSentiment:
			e.sentiment(call, d.Payload)
		case KindWait:
			eff.Hold = true
		default:
			slog.Warn("ignoring unrecognized directive",
				slogx.CallID(call.ID), slog.String("type", d.Raw))
		}
	}
	return eff
}

// createTicket opens a ticket in the background, at most one per call.
func (e *Executor) createTicket(call *session.Call, summary string) {
	if call.ActiveTicketID != 0 {
		slog.Debug("ticket already active, skipping create", slogx.CallID(call.ID))
		return
	}
	if strings.TrimSpace(summary) == "" {
		summary = call.IssueDescription
	}
	var requesterID int64
	if call.Contact != nil {
		requesterID = call.Contact.ID
	}
	phone, sentiment, callID := call.Phone, call.Sentiment, call.ID

	e.runner.Go("create-ticket", func(ctx context.Context) error {
		id, err := e.crm.CreateTicket(ctx, requesterID, phone, summary, sentiment)
		if err != nil {
			return err
		}
		call.Lock()
		if call.ActiveTicketID == 0 {
			call.ActiveTicketID = id
		}
		call.Unlock()
		slog.Info("opened ticket", slogx.CallID(callID), slog.Int64("ticket_id", id))
		return nil
	})
}

func (e *Executor) adoptTicket(call *session.Call, payload string) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || id <= 0 {
		slog.Warn("dropping malformed USE_TICKET payload",
			slogx.CallID(call.ID), slog.String("payload", payload))
		return
	}
	call.ActiveTicketID = id
}

func (e *Executor) resolveTicket(call *session.Call, payload string) {
	id := call.ActiveTicketID
	if p := strings.TrimSpace(payload); p != "" {
		parsed, err := strconv.ParseInt(p, 10, 64)
		if err != nil || parsed <= 0 {
			slog.Warn("dropping malformed RESOLVE_TICKET payload",
				slogx.CallID(call.ID), slog.String("payload", payload))
			return
		}
		id = parsed
	}
	if id == 0 {
		slog.Debug("no ticket to resolve", slogx.CallID(call.ID))
		return
	}
	e.runner.Go("resolve-ticket", func(ctx context.Context) error {
		return e.crm.ResolveTicket(ctx, id)
	})
}

// ScheduleTransfer resolves the destination and schedules the API-side bridge
// after the acknowledgment has had a moment to play. The bridge is the only
// transfer the engine initiates; the returned destination travels back in the
// reply so the transport can hold the line and dial it itself only if the
// scheduled redirect never lands.
func (e *Executor) ScheduleTransfer(call *session.Call, payload string) string {
	target := e.agentNumber
	if digits := digitsOf(payload); len(digits) >= 7 {
		target = digits
	} else if strings.TrimSpace(payload) != "" {
		slog.Warn("invalid transfer number, using default agent",
			slogx.CallID(call.ID), slog.String("payload", payload))
	}
	callID, from := call.ID, call.BotNumber

	e.clock.AfterFunc(transferDelay, func() {
		e.runner.Go("transfer", func(ctx context.Context) error {
			return e.telco.Transfer(ctx, callID, target, from)
		})
	})
	return target
}

// ScheduleHangup defers call teardown long enough for the farewell audio to
// play. The timer is per-call and is not cancelled once set; a call that
// reached this point is expected to end.
func (e *Executor) ScheduleHangup(callID, farewell string) time.Duration {
	delay := HangupDelay(farewell)
	e.clock.AfterFunc(delay, func() {
		e.runner.Go("hangup", func(ctx context.Context) error {
			return e.telco.Hangup(ctx, callID)
		})
	})
	slog.Info("scheduled hangup", slogx.CallID(callID), slog.Duration("delay", delay))
	return delay
}

// updateName adopts a caller-provided name onto the CRM contact, but only
// when the current name is a placeholder and the new one is not.
func (e *Executor) updateName(call *session.Call, name string) {
	name = strings.TrimSpace(name)
	if call.Contact == nil || call.Contact.ID == 0 {
		return
	}
	if !placeholderName(call.Contact.Name) || placeholderName(name) {
		slog.Debug("skipping contact rename",
			slogx.CallID(call.ID), slog.String("name", name))
		return
	}
	call.Contact.Name = name
	contactID := call.Contact.ID
	e.runner.Go("update-contact-name", func(ctx context.Context) error {
		return e.crm.UpdateContactName(ctx, contactID, name)
	})
}

func (e *Executor) sentiment(call *session.Call, payload string) {
	s := strings.TrimSpace(payload)
	if s == "" {
		return
	}
	call.Sentiment = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// placeholderName reports whether a contact name is empty, "unknown", or
// just a phone number. Real names contain at least one letter.
func placeholderName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "unknown") {
		return true
	}
	return !strings.ContainsFunc(name, unicode.IsLetter)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
