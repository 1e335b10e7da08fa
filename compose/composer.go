// Package compose orchestrates knowledge-base lookup, community-forum
// fallback, and the language-model call to produce a single spoken answer for
// a reported issue.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/directive"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/session"
	"github.com/fogfish/opts"
)

// ErrNoAnswer reports that the language model produced nothing usable; the
// caller-facing handler falls back to a live-agent transfer.
var ErrNoAnswer = errors.New("compose: no answer available")

// Mode selects how a composition is framed for the model.
type Mode uint8

const (
	// ModeNewTicket answers a freshly described issue.
	ModeNewTicket Mode = iota
	// ModeExistingTicket answers a confirmed previously reported issue.
	ModeExistingTicket
	// ModeFollowUp refines the previous answer with a follow-up question.
	ModeFollowUp
	// ModeCommunityFallback answers from community search results after the
	// knowledge base came up empty.
	ModeCommunityFallback
)

func (m Mode) String() string {
	switch m {
	case ModeNewTicket:
		return "new-ticket"
	case ModeExistingTicket:
		return "existing-ticket"
	case ModeFollowUp:
		return "follow-up"
	case ModeCommunityFallback:
		return "community-fallback"
	default:
		return "unknown"
	}
}

// Answer is a composed reply: the normalized spoken text plus any directives
// the model embedded in it.
type Answer struct {
	Spoken     string
	Directives []directive.Directive
}

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 600
	defaultMaxSpoken   = 700

	maxSnippetChars   = 4000
	maxCommunityChars = 6000
	maxSearchTerms    = 5
	minTermLength     = 4
)

// Composer produces spoken answers. One composer serves all calls; per-call
// budgets (knowledge attempts, community fallback) live on the session.
type Composer struct {
	kb        api.Knowledge
	community api.Community
	llm       api.Conversationalist

	temperature float64
	maxTokens   int64
	maxSpoken   int
}

var (
	// Temperature bounds sampling randomness for generation.
	Temperature = opts.ForName[Composer, float64]("temperature")
	// MaxTokens bounds generated length.
	MaxTokens = opts.ForName[Composer, int64]("maxTokens")
	// MaxSpoken caps the spoken answer length in characters.
	MaxSpoken = opts.ForName[Composer, int]("maxSpoken")
)

// New creates a composer over its three collaborators.
func New(kb api.Knowledge, community api.Community, llm api.Conversationalist, options ...opts.Option[Composer]) *Composer {
	c := &Composer{
		kb:          kb,
		community:   community,
		llm:         llm,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		maxSpoken:   defaultMaxSpoken,
	}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	return c
}

// Compose produces the spoken answer for a query. The caller holds the call
// lock; session budgets are consumed here. On failure it returns ErrNoAnswer
// (possibly wrapped) and the handler must offer a transfer instead.
func (c *Composer) Compose(ctx context.Context, call *session.Call, query string, mode Mode) (Answer, error) {
	if call.KnowledgeAttempts < session.MaxKnowledgeAttempts && mode != ModeCommunityFallback {
		call.KnowledgeAttempts++
		snippet, err := c.searchKnowledge(ctx, query)
		if err != nil {
			// Treated as no result; the flow degrades to the model alone.
			slog.Warn("knowledge search failed", slogx.CallID(call.ID), slogx.Error(err))
		} else {
			call.LastSnippet = snippet
		}
	}

	reply, err := c.generate(ctx, call, query, mode, call.LastSnippet)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrNoAnswer, err)
	}

	if call.LastSnippet == "" &&
		!call.CommunitySearched &&
		call.KnowledgeAttempts >= session.MaxKnowledgeAttempts {
		// One community shot per call, successful or not.
		call.CommunitySearched = true
		text, err := c.community.Search(ctx, query)
		if err != nil {
			slog.Warn("community search failed", slogx.CallID(call.ID), slogx.Error(err))
		} else if text = truncate(text, maxCommunityChars); text != "" {
			if fallback, err := c.generate(ctx, call, query, ModeCommunityFallback, text); err == nil {
				reply = fallback
			} else {
				slog.Warn("community fallback generation failed", slogx.CallID(call.ID), slogx.Error(err))
			}
		}
	}

	clean, ds := directive.Parse(reply)
	spoken := Spoken(clean, c.maxSpoken)
	if spoken == "" {
		return Answer{}, ErrNoAnswer
	}
	call.LastAnswer = spoken
	return Answer{Spoken: spoken, Directives: ds}, nil
}

// searchKnowledge queries the knowledge base with a normalized term and
// folds the first few articles into one bounded snippet.
func (c *Composer) searchKnowledge(ctx context.Context, query string) (string, error) {
	term := SearchTerm(query)
	if term == "" {
		return "", nil
	}
	articles, err := c.kb.Search(ctx, term)
	if err != nil {
		return "", err
	}
	if len(articles) > 3 {
		articles = articles[:3]
	}
	var b strings.Builder
	for _, a := range articles {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "ARTICLE: %s\nSTEPS: %s", a.Title, a.Body)
	}
	return truncate(b.String(), maxSnippetChars), nil
}

func (c *Composer) generate(ctx context.Context, call *session.Call, query string, mode Mode, knowledge string) (string, error) {
	req := api.CompletionRequest{
		Instructions: instructions,
		Prompt:       contextBlock(call, query, mode, knowledge),
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	}
	return c.llm.Complete(ctx, req)
}

// SearchTerm normalizes a query for knowledge-base search: lower-cased,
// punctuation stripped, short words dropped, capped to a few terms. When
// normalization eats everything it falls back to a truncated raw query.
func SearchTerm(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, query)

	var terms []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < minTermLength {
			continue
		}
		terms = append(terms, w)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	if len(terms) == 0 {
		return truncate(strings.TrimSpace(query), 80)
	}
	return strings.Join(terms, " ")
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
