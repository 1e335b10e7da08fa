package twilio

import (
	"context"
	"fmt"

	twilioclient "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// callAPI is the slice of the Twilio REST surface call control needs.
type callAPI interface {
	UpdateCall(sid string, params *openapi.UpdateCallParams) (*openapi.ApiV2010Call, error)
}

// CallControl implements api.Telephony by mutating live calls through the
// Twilio REST API.
type CallControl struct {
	api callAPI
}

// NewCallControl authenticates a REST client with the account credentials.
func NewCallControl(accountSID, authToken string) *CallControl {
	client := twilioclient.NewRestClientWithParams(twilioclient.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &CallControl{api: client.Api}
}

// NewCallControlWithAPI wires call control to a caller-supplied API, for tests.
func NewCallControlWithAPI(api callAPI) *CallControl {
	return &CallControl{api: api}
}

// Transfer redirects the live call into a Dial toward the agent number. The
// redirect replaces whatever TwiML the call is currently executing.
func (c *CallControl) Transfer(_ context.Context, callID, to, from string) error {
	dial := &twiml.VoiceDial{
		CallerId: from,
		InnerElements: []twiml.Element{
			&twiml.VoiceNumber{PhoneNumber: to},
		},
	}
	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: "Transferring you now."},
		dial,
	})
	if err != nil {
		return fmt.Errorf("twilio: render transfer twiml: %w", err)
	}

	params := (&openapi.UpdateCallParams{}).SetTwiml(doc)
	if _, err := c.api.UpdateCall(callID, params); err != nil {
		return fmt.Errorf("twilio: transfer call %s: %w", callID, err)
	}
	return nil
}

// Hangup completes the call immediately.
func (c *CallControl) Hangup(_ context.Context, callID string) error {
	params := (&openapi.UpdateCallParams{}).SetStatus("completed")
	if _, err := c.api.UpdateCall(callID, params); err != nil {
		return fmt.Errorf("twilio: hang up call %s: %w", callID, err)
	}
	return nil
}
