// Command strix serves the voice support agent: Twilio webhooks in, TwiML
// out, with Freshdesk as the ticketing backend and Groq generating replies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Ensure API keys are loaded
	_ "github.com/joho/godotenv/autoload"

	json "github.com/goccy/go-json"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	strix "github.com/casualjim/strix"
	"github.com/casualjim/strix/compose"
	"github.com/casualjim/strix/crm/freshdesk"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/provider/groq"
	twiliotel "github.com/casualjim/strix/telco/twilio"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

type config struct {
	Addr      string
	PublicURL string
	Company   string

	FreshDomain string
	FreshAPIKey string

	GroqAPIKey string
	GroqModel  string

	TwilioAccountSID string
	TwilioAuthToken  string
	AgentNumber      string
}

func configFromEnv() (config, error) {
	cfg := config{
		Addr:             envOr("STRIX_ADDR", ":8080"),
		PublicURL:        os.Getenv("STRIX_PUBLIC_URL"),
		Company:          envOr("STRIX_COMPANY", "support"),
		FreshDomain:      os.Getenv("FRESH_DOMAIN"),
		FreshAPIKey:      os.Getenv("FRESH_API_KEY"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		GroqModel:        os.Getenv("GROQ_MODEL"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		AgentNumber:      os.Getenv("STRIX_AGENT_NUMBER"),
	}

	var missing []string
	for _, kv := range []struct{ name, val string }{
		{"STRIX_PUBLIC_URL", cfg.PublicURL},
		{"FRESH_DOMAIN", cfg.FreshDomain},
		{"FRESH_API_KEY", cfg.FreshAPIKey},
		{"GROQ_API_KEY", cfg.GroqAPIKey},
		{"TWILIO_ACCOUNT_SID", cfg.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", cfg.TwilioAuthToken},
	} {
		if kv.val == "" {
			missing = append(missing, kv.name)
		}
	}
	if len(missing) > 0 {
		return config{}, fmt.Errorf("missing environment: %v", missing)
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := configFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	crm := freshdesk.New(cfg.FreshDomain, cfg.FreshAPIKey)
	llm := groq.New(cfg.GroqAPIKey).WithModel(cfg.GroqModel)
	telco := twiliotel.NewCallControl(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	solver := compose.New(crm, crm.Community(), llm)

	engine := strix.New(crm, solver, telco,
		strix.WithCompany(cfg.Company),
		strix.WithAgentNumber(cfg.AgentNumber),
	)
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes(engine, cfg.PublicURL),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("server shutdown", slogx.Error(err))
		}
	}()

	slog.Info("listening", slog.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}

func routes(engine *strix.Engine, publicURL string) http.Handler {
	asrURL := publicURL + "/voice/asr"

	mux := http.NewServeMux()
	mux.HandleFunc("POST /voice/answer", func(w http.ResponseWriter, r *http.Request) {
		callID, from, to := r.FormValue("CallSid"), r.FormValue("From"), r.FormValue("To")
		reply, err := engine.HandleStart(r.Context(), callID, from, to)
		if err != nil {
			slog.Error("call start", slogx.CallID(callID), slogx.Error(err))
			http.Error(w, "call start failed", http.StatusInternalServerError)
			return
		}
		writeTwiML(w, reply, asrURL)
	})

	mux.HandleFunc("POST /voice/asr", func(w http.ResponseWriter, r *http.Request) {
		callID := r.FormValue("CallSid")
		speech := r.FormValue("SpeechResult")

		reply, err := engine.HandleSpeech(r.Context(), callID, speech)
		if err != nil {
			slog.Warn("speech handling", slogx.CallID(callID), slogx.Error(err))
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		writeTwiML(w, reply, asrURL)
	})

	mux.HandleFunc("POST /voice/status", func(w http.ResponseWriter, r *http.Request) {
		engine.HandleStatus(r.Context(), r.FormValue("CallSid"), r.FormValue("CallStatus"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"active_calls":  engine.Sessions().Len(),
			"observed_time": time.Now().UTC(),
		})
	})

	return mux
}

func writeTwiML(w http.ResponseWriter, reply strix.Reply, asrURL string) {
	doc, err := twiliotel.Render(reply, asrURL)
	if err != nil {
		slog.Error("twiml render", slogx.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(doc))
}
