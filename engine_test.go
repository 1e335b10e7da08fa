package strix

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/compose"
	"github.com/casualjim/strix/pkg/clockx"
	"github.com/casualjim/strix/session"
)

type fakeCRM struct {
	mu sync.Mutex

	contact  api.Contact
	found    bool
	tickets  []api.Ticket
	created  int
	resolved []int64
	notes    map[int64]string
	nextID   int64
}

func (f *fakeCRM) LookupContactByPhone(context.Context, string) (api.Contact, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contact, f.found, nil
}

func (f *fakeCRM) CreateContact(_ context.Context, name, phone string) (api.Contact, error) {
	return api.Contact{ID: 999, Name: name, Phone: phone}, nil
}

func (f *fakeCRM) UpdateContactName(context.Context, int64, string) error { return nil }

func (f *fakeCRM) RecentTickets(context.Context, int64, int) ([]api.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets, nil
}

func (f *fakeCRM) CreateTicket(context.Context, int64, string, string, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	f.nextID++
	return 1000 + f.nextID, nil
}

func (f *fakeCRM) ResolveTicket(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeCRM) AddNote(_ context.Context, id int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notes == nil {
		f.notes = map[int64]string{}
	}
	f.notes[id] = body
	return nil
}

func (f *fakeCRM) noteFor(id int64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	return n, ok
}

type fakeSolver struct{}

func (fakeSolver) Compose(_ context.Context, call *session.Call, _ string, _ compose.Mode) (compose.Answer, error) {
	answer := "Restart the device and try again. Did that work for you?"
	call.LastAnswer = answer
	return compose.Answer{Spoken: answer}, nil
}

type fakeTelco struct {
	mu        sync.Mutex
	transfers []string
	hangups   []string
}

func (f *fakeTelco) Transfer(_ context.Context, _, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, to)
	return nil
}

func (f *fakeTelco) Hangup(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hangups = append(f.hangups, callID)
	return nil
}

func (f *fakeTelco) hangupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hangups)
}

func (f *fakeTelco) transferTargets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transfers...)
}

func newTestEngine(t *testing.T, crm *fakeCRM) (*Engine, *fakeTelco, *clockx.Fake) {
	t.Helper()
	telco := &fakeTelco{}
	clock := clockx.NewFake()
	e := New(crm, fakeSolver{}, telco,
		WithCompany("Acme Support"),
		WithAgentNumber("+15550001111"),
		WithClock(clock),
	)
	t.Cleanup(e.Close)
	return e, telco, clock
}

func TestHandleStart(t *testing.T) {
	t.Run("known caller greeted by name", func(t *testing.T) {
		crm := &fakeCRM{
			contact: api.Contact{ID: 7, Name: "Jordan", Phone: "+15557654321"},
			found:   true,
			tickets: []api.Ticket{{ID: 42, Subject: "Printer offline", Status: api.TicketOpen}},
		}
		e, _, _ := newTestEngine(t, crm)

		reply, err := e.HandleStart(context.Background(), "CA1", "+15557654321", "+15550009999")
		require.NoError(t, err)
		assert.Contains(t, reply.Say, "Jordan")
		assert.Contains(t, reply.Say, "Acme Support")
		assert.True(t, strings.HasSuffix(reply.Say, "?"), "greeting ends on the opening question")
		assert.True(t, reply.Listen)

		call, ok := e.Sessions().Get("CA1")
		require.True(t, ok)
		assert.Equal(t, session.StageAskedBefore, call.Stage)
		require.Len(t, call.CandidateTickets, 1)
	})

	t.Run("unknown caller gets a generic greeting", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})

		reply, err := e.HandleStart(context.Background(), "CA2", "+15551112222", "+15550009999")
		require.NoError(t, err)
		assert.NotContains(t, reply.Say, "Welcome back")
		assert.True(t, reply.Listen)
	})

	t.Run("withheld number skips the lookup", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})

		reply, err := e.HandleStart(context.Background(), "CA3", "anonymous", "+15550009999")
		require.NoError(t, err)
		assert.True(t, reply.Listen)

		call, _ := e.Sessions().Get("CA3")
		assert.True(t, call.LookupFinished())
		assert.Nil(t, call.Contact)
	})
}

func TestHandleSpeechFlow(t *testing.T) {
	crm := &fakeCRM{
		contact: api.Contact{ID: 7, Name: "Jordan", Phone: "+15557654321"},
		found:   true,
		tickets: []api.Ticket{{ID: 42, Subject: "Printer offline", Status: api.TicketOpen}},
	}
	e, telco, clock := newTestEngine(t, crm)
	ctx := context.Background()

	_, err := e.HandleStart(ctx, "CA10", "+15557654321", "+15550009999")
	require.NoError(t, err)

	// Yes, called before: the open ticket is offered.
	reply, err := e.HandleSpeech(ctx, "CA10", "yes I have")
	require.NoError(t, err)
	assert.Contains(t, reply.Say, "Printer offline")
	assert.True(t, reply.Listen)

	// Confirmed: the ticket is adopted and a fix is offered.
	reply, err = e.HandleSpeech(ctx, "CA10", "yes exactly")
	require.NoError(t, err)
	assert.Contains(t, reply.Say, "Restart the device")

	call, _ := e.Sessions().Get("CA10")
	assert.Equal(t, int64(42), call.ActiveTicketID)
	assert.Equal(t, session.StageAfterSteps, call.Stage)

	// It worked; anything else?
	reply, err = e.HandleSpeech(ctx, "CA10", "that worked")
	require.NoError(t, err)
	assert.Contains(t, reply.Say, "anything else")

	// Nothing else: the call winds down, ticket resolved, hangup scheduled.
	reply, err = e.HandleSpeech(ctx, "CA10", "no that's everything")
	require.NoError(t, err)
	assert.True(t, reply.Hangup)
	assert.False(t, reply.Listen)
	assert.GreaterOrEqual(t, reply.HangupDelay, 3*time.Second)

	require.True(t, e.runner.Wait(time.Second))
	crm.mu.Lock()
	assert.Equal(t, []int64{42}, crm.resolved)
	crm.mu.Unlock()

	assert.Zero(t, telco.hangupCount(), "line stays up until the farewell has played")
	clock.Advance(reply.HangupDelay)
	require.True(t, e.runner.Wait(time.Second))
	assert.Equal(t, 1, telco.hangupCount())
}

func TestHandleSpeechEscalation(t *testing.T) {
	e, telco, clock := newTestEngine(t, &fakeCRM{})
	ctx := context.Background()

	_, err := e.HandleStart(ctx, "CA11", "+15551112222", "+15550009999")
	require.NoError(t, err)

	_, err = e.HandleSpeech(ctx, "CA11", "no")
	require.NoError(t, err)
	_, err = e.HandleSpeech(ctx, "CA11", "my screen is flickering")
	require.NoError(t, err)

	reply, err := e.HandleSpeech(ctx, "CA11", "I need to speak to someone")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", reply.Transfer)
	assert.False(t, reply.Listen)

	// Exactly one bridge: nothing until the acknowledgment has played, a
	// single API-side transfer after, and no second attempt later.
	assert.Empty(t, telco.transferTargets())
	clock.Advance(2 * time.Second)
	require.True(t, e.runner.Wait(time.Second))
	assert.Equal(t, []string{"+15550001111"}, telco.transferTargets())

	clock.Advance(time.Minute)
	require.True(t, e.runner.Wait(time.Second))
	assert.Equal(t, []string{"+15550001111"}, telco.transferTargets())
}

func TestHandleSilence(t *testing.T) {
	t.Run("escalates and disconnects on the third", func(t *testing.T) {
		e, telco, clock := newTestEngine(t, &fakeCRM{})
		ctx := context.Background()

		_, err := e.HandleStart(ctx, "CA12", "+15551112222", "+15550009999")
		require.NoError(t, err)

		reply, err := e.HandleSilence(ctx, "CA12")
		require.NoError(t, err)
		assert.True(t, reply.Listen)

		reply, err = e.HandleSilence(ctx, "CA12")
		require.NoError(t, err)
		assert.Contains(t, reply.Say, "still there")

		reply, err = e.HandleSilence(ctx, "CA12")
		require.NoError(t, err)
		assert.True(t, reply.Hangup)
		assert.False(t, reply.Listen)

		clock.Advance(reply.HangupDelay)
		require.True(t, e.runner.Wait(time.Second))
		assert.Equal(t, 1, telco.hangupCount())
	})

	t.Run("speech resets the count", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})
		ctx := context.Background()

		_, err := e.HandleStart(ctx, "CA13", "+15551112222", "+15550009999")
		require.NoError(t, err)

		_, err = e.HandleSilence(ctx, "CA13")
		require.NoError(t, err)
		_, err = e.HandleSilence(ctx, "CA13")
		require.NoError(t, err)

		_, err = e.HandleSpeech(ctx, "CA13", "sorry, I'm here")
		require.NoError(t, err)

		call, _ := e.Sessions().Get("CA13")
		assert.Zero(t, call.SilenceCount)
	})

	t.Run("noise counts as silence", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})
		ctx := context.Background()

		_, err := e.HandleStart(ctx, "CA14", "+15551112222", "+15550009999")
		require.NoError(t, err)

		_, err = e.HandleSpeech(ctx, "CA14", "uh")
		require.NoError(t, err)

		call, _ := e.Sessions().Get("CA14")
		assert.Equal(t, 1, call.SilenceCount)
	})

	t.Run("unknown call id", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})
		_, err := e.HandleSilence(context.Background(), "CA404")
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestHandleStatus(t *testing.T) {
	t.Run("completion syncs the transcript and drops the session", func(t *testing.T) {
		crm := &fakeCRM{}
		e, _, _ := newTestEngine(t, crm)
		ctx := context.Background()

		_, err := e.HandleStart(ctx, "CA15", "+15551112222", "+15550009999")
		require.NoError(t, err)

		call, _ := e.Sessions().Get("CA15")
		call.Lock()
		call.ActiveTicketID = 77
		call.AppendTurn("user", "my printer is broken")
		call.Unlock()

		e.HandleStatus(ctx, "CA15", "completed")
		require.True(t, e.runner.Wait(time.Second))

		_, ok := e.Sessions().Get("CA15")
		assert.False(t, ok)

		note, ok := crm.noteFor(77)
		require.True(t, ok)
		assert.Contains(t, note, "my printer is broken")
	})

	t.Run("intermediate statuses are ignored", func(t *testing.T) {
		e, _, _ := newTestEngine(t, &fakeCRM{})
		ctx := context.Background()

		_, err := e.HandleStart(ctx, "CA16", "+15551112222", "+15550009999")
		require.NoError(t, err)

		e.HandleStatus(ctx, "CA16", "in-progress")
		_, ok := e.Sessions().Get("CA16")
		assert.True(t, ok)
	})
}
