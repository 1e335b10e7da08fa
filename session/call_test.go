package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casualjim/strix/api"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	t.Cleanup(s.Close)
	return s
}

func TestCallDefaults(t *testing.T) {
	call := newTestStore(t).GetOrCreate("CA1")
	assert.Equal(t, StageAskedBefore, call.Stage)
	assert.Equal(t, "Neutral", call.Sentiment)
	assert.Zero(t, call.SilenceCount)
	assert.False(t, call.LookupFinished())
}

func TestAppendIssue(t *testing.T) {
	t.Run("joins utterances with a space", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA2")
		call.AppendIssue("printer is offline")
		call.AppendIssue("it was fine yesterday")
		assert.Equal(t, "printer is offline it was fine yesterday", call.IssueDescription)
	})

	t.Run("ignores blanks", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA3")
		call.AppendIssue("   ")
		assert.Empty(t, call.IssueDescription)
	})

	t.Run("keeps the trailing window", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA4")
		call.AppendIssue(strings.Repeat("a", maxIssueChars))
		call.AppendIssue("the newest detail")
		assert.Len(t, call.IssueDescription, maxIssueChars)
		assert.True(t, strings.HasSuffix(call.IssueDescription, "the newest detail"))
	})
}

func TestAppendTurn(t *testing.T) {
	call := newTestStore(t).GetOrCreate("CA5")
	for i := 0; i < maxHistoryTurns+10; i++ {
		call.AppendTurn("user", "line")
	}
	call.AppendTurn("assistant", "last")

	history := call.History()
	require.Len(t, history, maxHistoryTurns)
	assert.Equal(t, "assistant", history[len(history)-1].Role)
	assert.Equal(t, "last", history[len(history)-1].Content)
}

func TestHistoryIsACopy(t *testing.T) {
	call := newTestStore(t).GetOrCreate("CA6")
	call.AppendTurn("user", "original")
	h := call.History()
	h[0].Content = "mutated"
	assert.Equal(t, "original", call.History()[0].Content)
}

func TestTicketCursor(t *testing.T) {
	call := newTestStore(t).GetOrCreate("CA7")
	call.CandidateTickets = []api.Ticket{
		{ID: 1, Subject: "first"},
		{ID: 2, Subject: "second"},
	}

	got, ok := call.CurrentCandidate()
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)

	assert.True(t, call.AdvanceCursor())
	got, ok = call.CurrentCandidate()
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	assert.False(t, call.AdvanceCursor())
	_, ok = call.CurrentCandidate()
	assert.False(t, ok)

	// Past the end the cursor stays put.
	assert.False(t, call.AdvanceCursor())
	assert.Equal(t, 2, call.TicketCursor)
}

func TestLookupHandshake(t *testing.T) {
	t.Run("wait returns early once finished", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA8")
		go call.FinishLookup(&api.Contact{ID: 5, Name: "Jordan"}, nil)

		assert.True(t, call.WaitLookup(time.Second))
		assert.True(t, call.LookupFinished())
		require.NotNil(t, call.Contact)
		assert.Equal(t, "Jordan", call.Contact.Name)
	})

	t.Run("wait gives up after the grace period", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA9")
		start := time.Now()
		assert.False(t, call.WaitLookup(10*time.Millisecond))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("only the first finish wins", func(t *testing.T) {
		call := newTestStore(t).GetOrCreate("CA10")
		call.FinishLookup(&api.Contact{ID: 1, Name: "First"}, nil)
		call.FinishLookup(&api.Contact{ID: 2, Name: "Second"}, nil)
		assert.Equal(t, "First", call.Contact.Name)
	})
}
