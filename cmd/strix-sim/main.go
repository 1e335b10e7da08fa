// Command strix-sim drives the call engine from a terminal: type what the
// caller would say, press enter on an empty line to simulate a silence
// timeout, and watch the stage machine respond. With GROQ_API_KEY set the
// real model generates answers; without it a canned conversationalist keeps
// the flow testable offline.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fatih/color"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	strix "github.com/casualjim/strix"
	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/compose"
	"github.com/casualjim/strix/pkg/uuidx"
	"github.com/casualjim/strix/provider/groq"
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelWarn}),
	))
}

func main() {
	ctx := context.Background()

	crm := newMemCRM()
	var llm api.Conversationalist
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		llm = groq.New(key)
	} else {
		llm = cannedLLM{}
		fmt.Println(color.YellowString("GROQ_API_KEY not set, using canned answers"))
	}

	solver := compose.New(memKB{}, memCommunity{}, llm)
	telco := &consoleTelco{}
	engine := strix.New(crm, solver, telco,
		strix.WithCompany("Acme Support"),
		strix.WithAgentNumber("+15550001111"),
	)
	defer engine.Close()

	callID := uuidx.NewString()
	reply, err := engine.HandleStart(ctx, callID, "+15557654321", "+15550009999")
	if err != nil {
		fmt.Println(color.RedString("call start failed: %v", err))
		return
	}
	speak(reply)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s: ", color.CyanString("Caller"))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, "exit") {
			break
		}

		if input == "" {
			reply, err = engine.HandleSilence(ctx, callID)
		} else {
			reply, err = engine.HandleSpeech(ctx, callID, input)
		}
		if err != nil {
			fmt.Println(color.RedString("error: %v", err))
			break
		}
		speak(reply)

		if reply.Transfer != "" {
			fmt.Println(color.YellowString("-- bridging to %s --", reply.Transfer))
			break
		}
		if reply.Hangup {
			fmt.Println(color.YellowString("-- hangup in %s --", reply.HangupDelay))
			break
		}
	}

	engine.HandleStatus(ctx, callID, "completed")
	fmt.Println(color.YellowString("-- call ended --"))
}

func speak(reply strix.Reply) {
	fmt.Printf("%s: %s\n", color.MagentaString("Agent"), reply.Say)
	if reply.Hold {
		fmt.Println(color.YellowString("-- holding --"))
	}
}

// consoleTelco prints instead of touching a real call.
type consoleTelco struct{}

func (consoleTelco) Transfer(_ context.Context, callID, to, from string) error {
	fmt.Println(color.YellowString("[telco] transfer %s -> %s (caller id %s)", callID, to, from))
	return nil
}

func (consoleTelco) Hangup(_ context.Context, callID string) error {
	fmt.Println(color.YellowString("[telco] hangup %s", callID))
	return nil
}

// memCRM is an in-memory ticketing backend seeded with one known caller.
type memCRM struct {
	mu       sync.Mutex
	contacts map[string]api.Contact
	nextID   int64
}

func newMemCRM() *memCRM {
	return &memCRM{
		contacts: map[string]api.Contact{
			"+15557654321": {ID: 1, Name: "Jordan", Phone: "+15557654321"},
		},
		nextID: 100,
	}
}

func (m *memCRM) LookupContactByPhone(_ context.Context, phone string) (api.Contact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[phone]
	return c, ok, nil
}

func (m *memCRM) CreateContact(_ context.Context, name, phone string) (api.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := api.Contact{ID: m.nextID, Name: name, Phone: phone}
	m.contacts[phone] = c
	return c, nil
}

func (m *memCRM) UpdateContactName(_ context.Context, contactID int64, name string) error {
	fmt.Println(color.YellowString("[crm] contact %d renamed to %q", contactID, name))
	return nil
}

func (m *memCRM) RecentTickets(_ context.Context, contactID int64, _ int) ([]api.Ticket, error) {
	if contactID == 1 {
		return []api.Ticket{{ID: 42, Subject: "Printer offline", Status: api.TicketOpen}}, nil
	}
	return nil, nil
}

func (m *memCRM) CreateTicket(_ context.Context, _ int64, _, description, sentiment string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	fmt.Println(color.YellowString("[crm] ticket %d opened (%s): %s", m.nextID, sentiment, description))
	return m.nextID, nil
}

func (m *memCRM) ResolveTicket(_ context.Context, ticketID int64) error {
	fmt.Println(color.YellowString("[crm] ticket %d resolved", ticketID))
	return nil
}

func (m *memCRM) AddNote(_ context.Context, ticketID int64, _ string) error {
	fmt.Println(color.YellowString("[crm] transcript synced to ticket %d", ticketID))
	return nil
}

type memKB struct{}

func (memKB) Search(_ context.Context, _ string) ([]api.Article, error) {
	return []api.Article{{
		Title: "Restarting the print spooler",
		Body:  "Open services, find Print Spooler, choose restart, then send the job again.",
	}}, nil
}

type memCommunity struct{}

func (memCommunity) Search(_ context.Context, _ string) (string, error) {
	return "", nil
}

// cannedLLM walks the happy path without a model: it restates the issue and
// suggests the knowledge snippet it was given.
type cannedLLM struct{}

func (cannedLLM) Complete(_ context.Context, req api.CompletionRequest) (string, error) {
	if strings.Contains(req.Prompt, "KNOWLEDGE_BASE") {
		return "Let's try restarting the print spooler. So first, open services. Next, find Print Spooler and choose restart. Did that work for you? [SENTIMENT: Neutral]", nil
	}
	return "I understand. Let me look into that for you. Did that work for you? [SENTIMENT: Neutral]", nil
}
