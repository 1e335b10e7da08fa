package strix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/dialog"
	"github.com/casualjim/strix/directive"
	"github.com/casualjim/strix/internal/dispatch"
	"github.com/casualjim/strix/pkg/clockx"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/session"
	"github.com/fogfish/opts"
)

// ErrNoSession reports an event for a call id the engine doesn't know,
// usually a webhook arriving after the session was evicted.
var ErrNoSession = errors.New("strix: no session for call")

const (
	// candidateTicketLimit caps how many previous tickets are offered.
	candidateTicketLimit = 2
	// lookupGrace is how long the greeting waits on the background CRM
	// lookup before going out unpersonalized.
	lookupGrace = 400 * time.Millisecond
)

// Engine drives the call-flow state machine. One engine serves all calls;
// per-call state lives in the session store and events for different calls
// are processed concurrently.
type Engine struct {
	sessions *session.Store
	machine  *dialog.Machine
	exec     *directive.Executor
	crm      api.CRM
	runner   *dispatch.Runner

	clock       clockx.Clock
	company     string
	agentNumber string
}

var (
	// WithCompany names the support line in the greeting.
	WithCompany = opts.ForName[Engine, string]("company")
	// WithAgentNumber sets the live-agent transfer destination.
	WithAgentNumber = opts.ForName[Engine, string]("agentNumber")
	// WithSessions substitutes the session store.
	WithSessions = opts.ForName[Engine, *session.Store]("sessions")
	// WithClock substitutes the scheduling clock, for tests.
	WithClock = opts.ForName[Engine, clockx.Clock]("clock")
	// WithRunner substitutes the background task runner.
	WithRunner = opts.ForName[Engine, *dispatch.Runner]("runner")
)

// New assembles an engine around its collaborators.
func New(crm api.CRM, solver dialog.Solver, telco api.Telephony, options ...opts.Option[Engine]) *Engine {
	e := &Engine{
		crm:     crm,
		clock:   clockx.Real{},
		company: "support",
	}
	if err := opts.Apply(e, options); err != nil {
		panic(err)
	}
	if e.sessions == nil {
		e.sessions = session.NewStore()
	}
	if e.runner == nil {
		e.runner = dispatch.New(8)
	}
	e.machine = dialog.NewMachine(solver)
	e.exec = directive.NewExecutor(crm, telco, e.runner,
		directive.WithClock(e.clock),
		directive.WithAgentNumber(e.agentNumber),
	)
	return e
}

// Close stops the session janitor and waits briefly for background work.
func (e *Engine) Close() {
	e.sessions.Close()
	e.runner.Wait(5 * time.Second)
}

// Sessions exposes the store, for status endpoints.
func (e *Engine) Sessions() *session.Store { return e.sessions }

// HandleStart begins a call: it creates the session, kicks off the CRM
// lookup in the background, and returns the greeting. The greeting waits a
// short grace period for the lookup so known callers are greeted by name;
// past that it goes out generic and the lookup lands whenever it lands.
func (e *Engine) HandleStart(ctx context.Context, callID, from, to string) (Reply, error) {
	call := e.sessions.GetOrCreate(callID)
	call.Lock()
	call.Phone = from
	call.BotNumber = to
	call.Touch(e.clock.Now())
	call.Unlock()

	if len(digits(from)) > 5 {
		e.runner.Go("contact-lookup", func(ctx context.Context) error {
			return e.lookupContact(ctx, call, from)
		})
		call.WaitLookup(lookupGrace)
	} else {
		call.FinishLookup(nil, nil)
	}

	greeting := fmt.Sprintf("Hello. Welcome to %s. %s", e.company, dialog.Opening())
	call.Lock()
	if call.Contact != nil && realName(call.Contact.Name) {
		greeting = fmt.Sprintf("Hello %s. Welcome back to %s. %s", call.Contact.Name, e.company, dialog.Opening())
	}
	call.AppendTurn("assistant", greeting)
	call.Unlock()

	return Reply{Say: greeting, Listen: true, Hints: dialog.Hints(session.StageAskedBefore)}, nil
}

// lookupContact runs off-turn: find or create the contact, then pull their
// recent open tickets as confirmation candidates.
func (e *Engine) lookupContact(ctx context.Context, call *session.Call, phone string) error {
	contact, found, err := e.crm.LookupContactByPhone(ctx, phone)
	if err != nil {
		call.FinishLookup(nil, nil)
		return err
	}
	if !found {
		// Placeholder contact so a ticket can be filed against someone.
		contact, err = e.crm.CreateContact(ctx, phone, phone)
		if err != nil {
			call.FinishLookup(nil, nil)
			return err
		}
	}

	var tickets []api.Ticket
	if contact.ID != 0 {
		tickets, err = e.crm.RecentTickets(ctx, contact.ID, candidateTicketLimit)
		if err != nil {
			slog.Warn("recent ticket lookup failed", slogx.CallID(call.ID), slogx.Error(err))
			tickets = nil
		}
	}
	call.FinishLookup(&contact, tickets)
	return nil
}

// HandleSpeech consumes a recognized utterance. Noise and empty fragments
// fall through to the silence policy; real speech resets the silence budget
// and runs the stage machine.
func (e *Engine) HandleSpeech(ctx context.Context, callID, utterance string) (Reply, error) {
	if isNoise(utterance) {
		return e.HandleSilence(ctx, callID)
	}

	call, ok := e.sessions.Get(callID)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoSession, callID)
	}

	call.Lock()
	defer call.Unlock()

	call.Touch(e.clock.Now())
	call.SilenceCount = 0
	call.AppendTurn("user", utterance)

	outcome := e.machine.Step(ctx, call, utterance)
	effects := e.exec.Apply(ctx, call, outcome.Directives, outcome.Say)

	call.Stage = outcome.Next
	call.AppendTurn("assistant", outcome.Say)

	reply := Reply{
		Say:         outcome.Say,
		Hold:        outcome.Hold || effects.Hold,
		Hangup:      outcome.Hangup || effects.Hangup,
		HangupDelay: effects.Delay,
		Transfer:    effects.Transfer,
		Hints:       dialog.Hints(outcome.Next),
	}
	if outcome.Transfer && reply.Transfer == "" {
		reply.Transfer = e.exec.ScheduleTransfer(call, "")
	}
	if outcome.Hangup && !effects.Hangup {
		reply.HangupDelay = e.exec.ScheduleHangup(callID, outcome.Say)
	}
	reply.Listen = reply.Transfer == "" && !reply.Hangup && !call.Stage.Terminal()

	return reply, nil
}

// HandleSilence consumes a no-input timeout. The third consecutive timeout
// ends the call with a fixed goodbye; before that the caller is re-prompted
// for whatever stage they were in.
func (e *Engine) HandleSilence(ctx context.Context, callID string) (Reply, error) {
	call, ok := e.sessions.Get(callID)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoSession, callID)
	}

	call.Lock()
	defer call.Unlock()

	call.Touch(e.clock.Now())
	call.SilenceCount++

	say, disconnect := dialog.SilencePrompt(call.SilenceCount, call.Stage)
	call.AppendTurn("assistant", say)
	if disconnect {
		call.Stage = session.StageDone
		delay := e.exec.ScheduleHangup(callID, say)
		return Reply{Say: say, Hangup: true, HangupDelay: delay}, nil
	}
	return Reply{Say: say, Listen: true, Hints: dialog.Hints(call.Stage)}, nil
}

// HandleStatus consumes transport status changes. Completion tears the
// session down and, when a ticket was opened or adopted, syncs the call
// transcript to it in the background.
func (e *Engine) HandleStatus(ctx context.Context, callID, status string) {
	switch status {
	case "completed", "failed", "busy", "no-answer", "canceled":
	default:
		return
	}

	call, ok := e.sessions.Get(callID)
	if !ok {
		return
	}

	call.Lock()
	ticketID := call.ActiveTicketID
	history := call.History()
	call.Unlock()

	e.sessions.Delete(callID)

	if ticketID != 0 && len(history) > 0 {
		note := Transcript(history)
		e.runner.Go("sync-transcript", func(ctx context.Context) error {
			return e.crm.AddNote(ctx, ticketID, note)
		})
	}
	slog.Info("call ended", slogx.CallID(callID), slog.String("status", status))
}

// realName reports whether a contact name is worth greeting with: it must
// contain a letter and not be the "unknown" placeholder.
func realName(name string) bool {
	return strings.ContainsFunc(name, unicode.IsLetter) &&
		!strings.EqualFold(strings.TrimSpace(name), "unknown")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
