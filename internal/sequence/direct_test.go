package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
)

func TestParseDirectResponse_CleanJSON(t *testing.T) {
	text := `{"touchpoints":[{"day_offset":0,"channel":"email","subject":"Hi","body":"Hello"},{"day_offset":4,"channel":"call","body":"Quick call"}],"plan":{"total_touches":2,"span_days":4}}`

	seq, plan, err := parseDirectResponse(text, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, seq.Index)
	require.Len(t, seq.Touchpoints, 2)
	assert.Equal(t, "call", seq.Touchpoints[1].Channel)
	require.NotNil(t, plan)
	assert.Equal(t, 4, plan.SpanDays)
}

func TestParseDirectResponse_FencedJSON(t *testing.T) {
	text := "Here is the sequence:\n```json\n{\"touchpoints\":[{\"day_offset\":1,\"channel\":\"linkedin\",\"body\":\"hi\"}]}\n```"

	seq, plan, err := parseDirectResponse(text, 0)
	require.NoError(t, err)
	assert.Len(t, seq.Touchpoints, 1)
	assert.Nil(t, plan)
}

func TestParseDirectResponse_NoJSON(t *testing.T) {
	_, _, err := parseDirectResponse("I cannot help with that.", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestParseDirectResponse_EmptyTouchpoints(t *testing.T) {
	_, _, err := parseDirectResponse(`{"touchpoints":[]}`, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no touchpoints")
}

func TestBuildPrompt_IncludesProspectAndParams(t *testing.T) {
	unit := model.WorkUnit{
		Index: 0,
		Prospect: model.Prospect{
			Name:    "Jane Doe",
			Title:   "VP Ops",
			Company: "Acme",
		},
		Params: &model.CampaignParams{
			Channels: []string{"email", "call"},
			Tone:     "direct",
			Sender:   model.SenderProfile{Name: "Sam", Title: "AE", Company: "Mantyl"},
			Context:  "met at trade show",
		},
	}

	prompt := buildPrompt(unit)
	assert.Contains(t, prompt, "Jane Doe")
	assert.Contains(t, prompt, "VP Ops")
	assert.Contains(t, prompt, "Acme")
	assert.Contains(t, prompt, "email, call")
	assert.Contains(t, prompt, "direct")
	assert.Contains(t, prompt, "met at trade show")
}
