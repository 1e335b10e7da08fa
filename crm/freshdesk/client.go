// Package freshdesk is the Freshdesk v2 REST binding for the support
// engine's CRM, knowledge base, and community collaborators.
package freshdesk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fogfish/opts"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/casualjim/strix/api"
)

const (
	// maxBodyBytes bounds what we read from any Freshdesk response.
	maxBodyBytes = 1 << 20
	// ticketTag marks tickets opened by the voice agent.
	ticketTag = "Strix_Ai"
)

// Client talks to Freshdesk. One Client serves all collaborator roles:
// api.CRM against the authenticated REST API, api.Knowledge against the
// public portal solutions search, and api.Community against the Freshworks
// community forum.
type Client struct {
	http   *http.Client
	apiKey string

	// baseURL is the authenticated API root, https://{domain}/api/v2.
	baseURL string
	// portalURL is the public support portal root, https://{domain}.
	portalURL string
	// communityURL is the forum search page.
	communityURL string
}

var (
	// WithHTTPClient substitutes the HTTP client, for tests and timeouts.
	WithHTTPClient = opts.ForName[Client, *http.Client]("http")
	// WithBaseURL overrides the API root.
	WithBaseURL = opts.ForName[Client, string]("baseURL")
	// WithPortalURL overrides the public portal root.
	WithPortalURL = opts.ForName[Client, string]("portalURL")
	// WithCommunityURL overrides the forum search page.
	WithCommunityURL = opts.ForName[Client, string]("communityURL")
)

// New builds a Client for the given Freshdesk domain, e.g. "acme.freshdesk.com".
func New(domain, apiKey string, options ...opts.Option[Client]) *Client {
	c := &Client{
		http:         &http.Client{Timeout: 8 * time.Second},
		apiKey:       apiKey,
		baseURL:      fmt.Sprintf("https://%s/api/v2", domain),
		portalURL:    fmt.Sprintf("https://%s", domain),
		communityURL: "https://community.freshworks.com/search",
	}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	return c
}

// do issues an authenticated API request and returns the response body.
// Freshdesk uses basic auth with the API key as username and "X" as password.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.apiKey, "X")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("freshdesk: %s %s: status %d: %s",
			method, path, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

// LookupContactByPhone searches contacts by phone and mobile, trying both the
// full digit string and its ten-digit tail since records are stored either way.
func (c *Client) LookupContactByPhone(ctx context.Context, phone string) (api.Contact, bool, error) {
	full := digitsOf(phone)
	if full == "" {
		return api.Contact{}, false, nil
	}
	ten := full
	if len(full) > 10 {
		ten = full[len(full)-10:]
	}

	query := fmt.Sprintf(
		`"(phone:'%s' OR mobile:'%s' OR phone:'%s' OR mobile:'%s' OR phone:'+%s')"`,
		ten, ten, full, full, full)

	data, err := c.do(ctx, http.MethodGet, "/search/contacts",
		url.Values{"query": {query}}, "")
	if err != nil {
		return api.Contact{}, false, err
	}

	first := gjson.GetBytes(data, "results.0")
	if !first.Exists() {
		return api.Contact{}, false, nil
	}
	return api.Contact{
		ID:    first.Get("id").Int(),
		Name:  first.Get("name").String(),
		Phone: first.Get("phone").String(),
	}, true, nil
}

func (c *Client) CreateContact(ctx context.Context, name, phone string) (api.Contact, error) {
	body, _ := sjson.Set("", "name", name)
	body, _ = sjson.Set(body, "phone", phone)

	data, err := c.do(ctx, http.MethodPost, "/contacts", nil, body)
	if err != nil {
		return api.Contact{}, err
	}
	return api.Contact{
		ID:    gjson.GetBytes(data, "id").Int(),
		Name:  gjson.GetBytes(data, "name").String(),
		Phone: gjson.GetBytes(data, "phone").String(),
	}, nil
}

func (c *Client) UpdateContactName(ctx context.Context, contactID int64, name string) error {
	body, _ := sjson.Set("", "name", name)
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/contacts/%d", contactID), nil, body)
	return err
}

// RecentTickets lists the contact's tickets newest first and keeps the open
// and pending ones. The status filter happens client side; the list endpoint
// has no status parameter.
func (c *Client) RecentTickets(ctx context.Context, contactID int64, limit int) ([]api.Ticket, error) {
	q := url.Values{
		"requester_id": {fmt.Sprintf("%d", contactID)},
		"include":      {"description"},
		"order_by":     {"created_at"},
		"order_type":   {"desc"},
	}
	data, err := c.do(ctx, http.MethodGet, "/tickets", q, "")
	if err != nil {
		return nil, err
	}

	var tickets []api.Ticket
	gjson.ParseBytes(data).ForEach(func(_, t gjson.Result) bool {
		status := int(t.Get("status").Int())
		if status != api.TicketOpen && status != api.TicketPending {
			return true
		}
		tickets = append(tickets, api.Ticket{
			ID:      t.Get("id").Int(),
			Subject: t.Get("subject").String(),
			Status:  status,
		})
		return len(tickets) < limit
	})
	return tickets, nil
}

func (c *Client) CreateTicket(ctx context.Context, requesterID int64, phone, description, sentiment string) (int64, error) {
	tags := []string{ticketTag}
	if sentiment != "" {
		tags = append(tags, "Sentiment_"+sentiment)
	}

	body, _ := sjson.Set("", "description", description)
	body, _ = sjson.Set(body, "subject", "Voice Support - "+truncate(description, 30))
	body, _ = sjson.Set(body, "priority", 1)
	body, _ = sjson.Set(body, "status", api.TicketOpen)
	body, _ = sjson.Set(body, "source", 3) // phone
	body, _ = sjson.Set(body, "tags", tags)
	if requesterID != 0 {
		body, _ = sjson.Set(body, "requester_id", requesterID)
	} else if phone != "" {
		body, _ = sjson.Set(body, "phone", phone)
	}

	data, err := c.do(ctx, http.MethodPost, "/tickets", nil, body)
	if err != nil {
		return 0, err
	}

	id := gjson.GetBytes(data, "id").Int()
	if id == 0 {
		id = gjson.GetBytes(data, "ticket.id").Int()
	}
	if id == 0 {
		return 0, fmt.Errorf("freshdesk: ticket created but no id in response")
	}
	return id, nil
}

func (c *Client) ResolveTicket(ctx context.Context, ticketID int64) error {
	body, _ := sjson.Set("", "status", api.TicketResolved)
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tickets/%d", ticketID), nil, body)
	return err
}

func (c *Client) AddNote(ctx context.Context, ticketID int64, note string) error {
	body, _ := sjson.Set("", "body", note)
	body, _ = sjson.Set(body, "private", true)
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tickets/%d/notes", ticketID), nil, body)
	return err
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
