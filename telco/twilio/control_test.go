package twilio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCallAPI struct {
	sids   []string
	params []*openapi.UpdateCallParams
	err    error
}

func (f *fakeCallAPI) UpdateCall(sid string, params *openapi.UpdateCallParams) (*openapi.ApiV2010Call, error) {
	f.sids = append(f.sids, sid)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &openapi.ApiV2010Call{}, nil
}

func TestCallControlHangup(t *testing.T) {
	t.Run("completes the call", func(t *testing.T) {
		api := &fakeCallAPI{}
		cc := NewCallControlWithAPI(api)

		require.NoError(t, cc.Hangup(context.Background(), "CA123"))
		require.Len(t, api.params, 1)
		assert.Equal(t, []string{"CA123"}, api.sids)
		require.NotNil(t, api.params[0].Status)
		assert.Equal(t, "completed", *api.params[0].Status)
	})

	t.Run("propagates the API error", func(t *testing.T) {
		cc := NewCallControlWithAPI(&fakeCallAPI{err: errors.New("call not found")})
		assert.Error(t, cc.Hangup(context.Background(), "CA404"))
	})
}

func TestCallControlTransfer(t *testing.T) {
	api := &fakeCallAPI{}
	cc := NewCallControlWithAPI(api)

	require.NoError(t, cc.Transfer(context.Background(), "CA123", "+15550001111", "+15559998888"))
	require.Len(t, api.params, 1)
	require.NotNil(t, api.params[0].Twiml)

	doc := *api.params[0].Twiml
	assert.Contains(t, doc, "<Number>+15550001111</Number>")
	assert.Contains(t, doc, `callerId="+15559998888"`)
	assert.Contains(t, doc, "Transferring you now.")
}
