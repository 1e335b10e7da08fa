package freshdesk

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/casualjim/strix/api"
)

func apiClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("example.freshdesk.com", "sekrit", WithBaseURL(srv.URL))
}

func TestAuthHeader(t *testing.T) {
	var got string
	c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"results":[]}`))
	})

	_, _, err := c.LookupContactByPhone(context.Background(), "+15551234567")
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("sekrit:X"))
	assert.Equal(t, want, got)
}

func TestLookupContactByPhone(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		var query string
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/contacts", r.URL.Path)
			query = r.URL.Query().Get("query")
			w.Write([]byte(`{"total":1,"results":[{"id":301,"name":"Jordan","phone":"5551234567"}]}`))
		})

		contact, found, err := c.LookupContactByPhone(context.Background(), "+1 (555) 123-4567")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, api.Contact{ID: 301, Name: "Jordan", Phone: "5551234567"}, contact)

		// Both the ten-digit tail and the full number are tried.
		assert.Contains(t, query, "phone:'5551234567'")
		assert.Contains(t, query, "phone:'15551234567'")
		assert.Contains(t, query, "mobile:'5551234567'")
	})

	t.Run("no match", func(t *testing.T) {
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total":0,"results":[]}`))
		})
		_, found, err := c.LookupContactByPhone(context.Background(), "+15551234567")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("no digits means no lookup", func(t *testing.T) {
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})
		_, found, err := c.LookupContactByPhone(context.Background(), "anonymous")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"description":"rate limited"}`, http.StatusTooManyRequests)
		})
		_, _, err := c.LookupContactByPhone(context.Background(), "+15551234567")
		assert.Error(t, err)
	})
}

func TestRecentTickets(t *testing.T) {
	c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("requester_id"))
		assert.Equal(t, "desc", r.URL.Query().Get("order_type"))
		w.Write([]byte(`[
			{"id":1,"subject":"Open one","status":2},
			{"id":2,"subject":"Closed","status":5},
			{"id":3,"subject":"Pending one","status":3},
			{"id":4,"subject":"Another open","status":2}
		]`))
	})

	tickets, err := c.RecentTickets(context.Background(), 42, 2)
	require.NoError(t, err)
	require.Len(t, tickets, 2, "closed tickets filtered, limit honored")
	assert.Equal(t, int64(1), tickets[0].ID)
	assert.Equal(t, int64(3), tickets[1].ID)
}

func TestCreateTicket(t *testing.T) {
	t.Run("payload shape", func(t *testing.T) {
		var body string
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			buf, _ := io.ReadAll(r.Body)
			body = string(buf)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":9001}`))
		})

		id, err := c.CreateTicket(context.Background(), 42, "", "printer keeps jamming", "Negative")
		require.NoError(t, err)
		assert.Equal(t, int64(9001), id)

		assert.Equal(t, int64(1), gjson.Get(body, "priority").Int())
		assert.Equal(t, int64(2), gjson.Get(body, "status").Int())
		assert.Equal(t, int64(3), gjson.Get(body, "source").Int())
		assert.Equal(t, int64(42), gjson.Get(body, "requester_id").Int())
		assert.Contains(t, gjson.Get(body, "tags").String(), "Sentiment_Negative")
		assert.Equal(t, "printer keeps jamming", gjson.Get(body, "description").String())
	})

	t.Run("falls back to phone without a requester", func(t *testing.T) {
		var body string
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			buf, _ := io.ReadAll(r.Body)
			body = string(buf)
			w.Write([]byte(`{"ticket":{"id":77}}`))
		})

		id, err := c.CreateTicket(context.Background(), 0, "+15551234567", "issue", "Neutral")
		require.NoError(t, err)
		assert.Equal(t, int64(77), id, "wrapped response shape accepted")
		assert.Equal(t, "+15551234567", gjson.Get(body, "phone").String())
		assert.False(t, gjson.Get(body, "requester_id").Exists())
	})

	t.Run("missing id is an error", func(t *testing.T) {
		c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})
		_, err := c.CreateTicket(context.Background(), 1, "", "issue", "")
		assert.Error(t, err)
	})
}

func TestResolveTicket(t *testing.T) {
	c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tickets/88", r.URL.Path)
		buf, _ := io.ReadAll(r.Body)
		assert.Equal(t, int64(api.TicketResolved), gjson.GetBytes(buf, "status").Int())
		w.Write([]byte(`{"id":88,"status":4}`))
	})
	require.NoError(t, c.ResolveTicket(context.Background(), 88))
}

func TestAddNote(t *testing.T) {
	c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets/88/notes", r.URL.Path)
		buf, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(buf, "private").Bool())
		assert.Contains(t, gjson.GetBytes(buf, "body").String(), "transcript")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":5}`))
	})
	require.NoError(t, c.AddNote(context.Background(), 88, "<b>Call transcript</b>"))
}

func TestUpdateContactName(t *testing.T) {
	c := apiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/contacts/301", r.URL.Path)
		w.Write([]byte(`{"id":301,"name":"Morgan"}`))
	})
	require.NoError(t, c.UpdateContactName(context.Background(), 301, "Morgan"))
}
