package dialog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/casualjim/strix/compose"
	"github.com/casualjim/strix/directive"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/session"
	"github.com/fogfish/opts"
)

// Solver produces a spoken answer for a query. Satisfied by *compose.Composer.
type Solver interface {
	Compose(ctx context.Context, call *session.Call, query string, mode compose.Mode) (compose.Answer, error)
}

// Outcome is a stage handler's verdict for one turn.
type Outcome struct {
	// Say is the spoken prompt for this turn.
	Say string
	// Next is the stage that will consume the following utterance.
	Next session.Stage
	// Hold asks for a longer listening window (the caller asked to wait).
	Hold bool
	// Transfer hands the caller to a live agent; the engine fills in the
	// destination. Hangup ends the call after Say has played.
	Transfer bool
	Hangup   bool
	// Directives carry backend commands for the executor, both those parsed
	// out of the model's reply and those the handlers issue themselves.
	Directives []directive.Directive
}

// Machine routes an utterance to the handler for the session's current stage.
type Machine struct {
	classifier Classifier
	solver     Solver
}

// WithClassifier swaps the intent classifier.
var WithClassifier = opts.ForName[Machine, Classifier]("classifier")

// NewMachine builds the state machine around a solver.
func NewMachine(solver Solver, options ...opts.Option[Machine]) *Machine {
	m := &Machine{
		classifier: Keywords{},
		solver:     solver,
	}
	if err := opts.Apply(m, options); err != nil {
		panic(err)
	}
	return m
}

// Step consumes one utterance against the session's current stage. The
// caller holds the call lock and has already reset the silence counter.
func (m *Machine) Step(ctx context.Context, call *session.Call, utterance string) Outcome {
	intent := m.classifier.Classify(utterance)

	// A pause request short-circuits every stage: acknowledge, hold, then
	// re-prompt for the same stage with nothing else mutated.
	if intent == IntentPause {
		return Outcome{
			Say:  pauseAck + " " + stagePrompt(call.Stage),
			Next: call.Stage,
			Hold: true,
		}
	}

	slog.Debug("dialog step",
		slogx.CallID(call.ID),
		slog.String("stage", call.Stage.String()),
		slog.String("intent", intent.String()))

	switch call.Stage {
	case session.StageAskedBefore:
		return m.askedBefore(ctx, call, intent)
	case session.StageConfirmTicket:
		return m.confirmTicket(ctx, call, intent)
	case session.StageNewIssue:
		return m.newIssue(ctx, call, utterance)
	case session.StageAfterSteps:
		return m.afterSteps(ctx, call, utterance, intent)
	case session.StageAnythingElse:
		return m.anythingElse(call, utterance, intent)
	default:
		// Done or an unknown stage; restart the conversation rather than
		// leave the caller hanging.
		return Outcome{Say: promptRestart, Next: session.StageNewIssue}
	}
}

// askedBefore routes on whether the caller already contacted support.
// Only an affirmative with candidate tickets on file goes to confirmation;
// everything else is treated as a new issue.
func (m *Machine) askedBefore(_ context.Context, call *session.Call, intent Intent) Outcome {
	if intent == IntentAffirmative && len(call.CandidateTickets) > 0 {
		call.TicketCursor = 0
		t, _ := call.CurrentCandidate()
		return Outcome{Say: offerTicket(t), Next: session.StageConfirmTicket}
	}
	return Outcome{Say: promptNewIssue, Next: session.StageNewIssue}
}

// confirmTicket walks the candidate list one confirmation at a time. The
// cursor only ever moves forward; once the list is exhausted the caller
// describes the issue fresh.
func (m *Machine) confirmTicket(ctx context.Context, call *session.Call, intent Intent) Outcome {
	if intent == IntentAffirmative {
		t, ok := call.CurrentCandidate()
		if !ok {
			return Outcome{Say: promptNewIssue, Next: session.StageNewIssue}
		}
		call.ActiveTicketID = t.ID
		answer, err := m.solver.Compose(ctx, call, t.Subject, compose.ModeExistingTicket)
		if err != nil {
			return m.solverFallback(call, err)
		}
		return Outcome{
			Say:        answer.Spoken,
			Next:       session.StageAfterSteps,
			Directives: answer.Directives,
		}
	}

	// Anything that isn't a clear yes counts as no in this stage.
	if call.AdvanceCursor() {
		t, _ := call.CurrentCandidate()
		return Outcome{Say: offerTicket(t), Next: session.StageConfirmTicket}
	}
	return Outcome{Say: promptNewIssue, Next: session.StageNewIssue}
}

// newIssue collects the caller's description, opens a ticket if the call has
// none yet, and answers.
func (m *Machine) newIssue(ctx context.Context, call *session.Call, utterance string) Outcome {
	if strings.TrimSpace(utterance) == "" {
		// Nothing to consume; re-prompt without touching the session.
		return Outcome{Say: promptNewIssueMore, Next: session.StageNewIssue}
	}

	call.AppendIssue(utterance)

	var ds []directive.Directive
	if call.ActiveTicketID == 0 {
		ds = append(ds, directive.Directive{
			Kind:    directive.KindCreateTicket,
			Payload: call.IssueDescription,
		})
	}

	answer, err := m.solver.Compose(ctx, call, call.IssueDescription, compose.ModeNewTicket)
	if err != nil {
		out := m.solverFallback(call, err)
		out.Directives = append(ds, out.Directives...)
		return out
	}
	return Outcome{
		Say:        answer.Spoken,
		Next:       session.StageAfterSteps,
		Directives: append(ds, answer.Directives...),
	}
}

// afterSteps handles the caller's reaction to a delivered solution.
func (m *Machine) afterSteps(ctx context.Context, call *session.Call, utterance string, intent Intent) Outcome {
	switch intent {
	case IntentResolved, IntentAffirmative:
		return Outcome{
			Say:  resolvedAck + " " + promptAnythingElse,
			Next: session.StageAnythingElse,
		}
	case IntentRepeat:
		say := call.LastAnswer
		if say == "" {
			say = promptNewIssue
		}
		return Outcome{Say: say, Next: session.StageAfterSteps}
	case IntentEscalate:
		return Outcome{Say: escalateAck, Next: session.StageDone, Transfer: true}
	default:
		// A follow-up question; refine the previous answer.
		answer, err := m.solver.Compose(ctx, call, utterance, compose.ModeFollowUp)
		if err != nil {
			return m.solverFallback(call, err)
		}
		return Outcome{
			Say:        answer.Spoken,
			Next:       session.StageAfterSteps,
			Directives: answer.Directives,
		}
	}
}

// anythingElse closes the call or loops back for a new issue.
func (m *Machine) anythingElse(call *session.Call, utterance string, intent Intent) Outcome {
	if intent == IntentNegative || strings.TrimSpace(utterance) == "" {
		ds := []directive.Directive{{Kind: directive.KindHangup}}
		if call.ActiveTicketID != 0 {
			ds = []directive.Directive{
				{Kind: directive.KindResolveTicket},
				{Kind: directive.KindHangup},
			}
		}
		return Outcome{
			Say:        closingRemark,
			Next:       session.StageDone,
			Hangup:     true,
			Directives: ds,
		}
	}

	call.AppendIssue(utterance)
	return Outcome{Say: promptNewIssueMore, Next: session.StageNewIssue}
}

// solverFallback is the ErrNoAnswer path: the model produced nothing usable,
// so the caller goes to a live agent instead of hearing silence.
func (m *Machine) solverFallback(call *session.Call, err error) Outcome {
	slog.Warn("composer failed, offering transfer", slogx.CallID(call.ID), slogx.Error(err))
	return Outcome{Say: transferOffer, Next: session.StageDone, Transfer: true}
}
