package freshdesk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/casualjim/strix/api"
)

// Portal searches are unauthenticated reads against public pages, so they
// get a much tighter deadline than the API calls. A slow knowledge lookup is
// worse than none during a live call.
const portalTimeout = 1500 * time.Millisecond

const maxArticles = 3

var (
	htmlTag = regexp.MustCompile(`<[^>]*>`)
	// The community search page has no JSON API; results are scraped out of
	// the rendered HTML by their stable CSS classes.
	forumResult = regexp.MustCompile(`(?s)<a[^>]*class="[^"]*forum-search-result__title[^"]*"[^>]*>(.*?)</a>.*?<div[^>]*class="[^"]*forum-search-result__content[^"]*"[^>]*>(.*?)</div>`)
)

// Search implements api.Knowledge against the portal's solutions search.
func (c *Client) Search(ctx context.Context, term string) ([]api.Article, error) {
	u := c.portalURL + "/support/search/solutions.json?" +
		url.Values{"term": {term}}.Encode()

	data, err := c.fetchPublic(ctx, u)
	if err != nil {
		return nil, err
	}

	var articles []api.Article
	root := gjson.ParseBytes(data)
	list := root.Get("data")
	if !list.IsArray() {
		list = root
	}
	list.ForEach(func(_, art gjson.Result) bool {
		body := art.Get("description").String()
		if body == "" {
			body = art.Get("description_text").String()
		}
		if body == "" {
			body = art.Get("desc").String()
		}
		articles = append(articles, api.Article{
			Title: stripHTML(art.Get("title").String()),
			Body:  stripHTML(body),
		})
		return len(articles) < maxArticles
	})
	return articles, nil
}

// SearchCommunity implements api.Community by scraping the Freshworks forum
// search page and rendering the top hits as a plain-text context blob.
func (c *Client) SearchCommunity(ctx context.Context, issue string) (string, error) {
	q := url.Values{
		"category": {"Using Freshdesk > Archives - Freshdesk"},
		"q":        {issue},
	}
	data, err := c.fetchPublic(ctx, c.communityURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var snippets []string
	for _, m := range forumResult.FindAllStringSubmatch(string(data), 2) {
		title := stripHTML(m[1])
		content := stripHTML(m[2])
		snippets = append(snippets,
			fmt.Sprintf("COMMUNITY ARCHIVE: %s\nSOLUTION: %s", title, truncate(content, 800)))
	}
	return strings.Join(snippets, "\n\n"), nil
}

// Community exposes the forum scrape under the api.Community shape. The
// knowledge-base search already claims the Search method name on Client.
func (c *Client) Community() api.Community {
	return communityAdapter{c}
}

type communityAdapter struct{ c *Client }

func (a communityAdapter) Search(ctx context.Context, issue string) (string, error) {
	return a.c.SearchCommunity(ctx, issue)
}

// fetchPublic issues an unauthenticated GET with the portal deadline.
func (c *Client) fetchPublic(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, portalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freshdesk: GET %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func stripHTML(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(htmlTag.ReplaceAllString(s, " ")), " "))
}
