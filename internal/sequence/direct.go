package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/anthropic"
)

// DirectGenerator produces sequences straight from the Anthropic API,
// bypassing the gateway. Used when a gateway is not deployed.
type DirectGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewDirectGenerator creates an Anthropic-backed generator.
func NewDirectGenerator(client anthropic.Client, modelID string, maxTokens int64) *DirectGenerator {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &DirectGenerator{client: client, model: modelID, maxTokens: maxTokens}
}

const directSystemPrompt = `You write multi-touch B2B outreach sequences. Respond with a single JSON object and nothing else:
{"touchpoints":[{"day_offset":int,"channel":string,"stage":string,"subject":string,"body":string}],"plan":{"total_touches":int,"span_days":int}}
Channels must come from the allowed list. Keep each body under 120 words.`

func (g *DirectGenerator) GenerateSequence(ctx context.Context, unit model.WorkUnit) (*model.Sequence, *model.SequencePlan, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    directSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(unit)},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	resp.Usage.LogCost(g.model, unit.Index)

	seq, plan, err := parseDirectResponse(resp.Text, unit.Index)
	if err != nil {
		return nil, nil, err
	}
	return seq, plan, nil
}

func buildPrompt(unit model.WorkUnit) string {
	var b strings.Builder
	p := unit.Prospect
	fmt.Fprintf(&b, "Prospect: %s", p.Name)
	if p.Title != "" {
		fmt.Fprintf(&b, ", %s", p.Title)
	}
	fmt.Fprintf(&b, " at %s.\n", p.Company)

	if params := unit.Params; params != nil {
		fmt.Fprintf(&b, "Sender: %s", params.Sender.Name)
		if params.Sender.Title != "" {
			fmt.Fprintf(&b, ", %s", params.Sender.Title)
		}
		fmt.Fprintf(&b, " at %s.\n", params.Sender.Company)
		fmt.Fprintf(&b, "Allowed channels: %s.\n", strings.Join(params.Channels, ", "))
		if params.Tone != "" {
			fmt.Fprintf(&b, "Tone: %s.\n", params.Tone)
		}
		if params.Context != "" {
			fmt.Fprintf(&b, "Context: %s\n", params.Context)
		}
	}
	b.WriteString("Write the outreach sequence now.")
	return b.String()
}

type directPayload struct {
	Touchpoints []model.Touchpoint `json:"touchpoints"`
	Plan        *struct {
		TotalTouches int `json:"total_touches"`
		SpanDays     int `json:"span_days"`
	} `json:"plan"`
}

// parseDirectResponse tolerates models that wrap the JSON in prose or code
// fences by slicing from the first '{' to the last '}'.
func parseDirectResponse(text string, index int) (*model.Sequence, *model.SequencePlan, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, nil, eris.Errorf("direct: no JSON object in model response (%d bytes)", len(text))
	}

	var payload directPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, nil, eris.Wrap(err, "direct: decode model response")
	}
	if len(payload.Touchpoints) == 0 {
		return nil, nil, eris.New("direct: model returned no touchpoints")
	}

	seq := &model.Sequence{Index: index, Touchpoints: payload.Touchpoints}
	var plan *model.SequencePlan
	if payload.Plan != nil {
		plan = &model.SequencePlan{
			TotalTouches: payload.Plan.TotalTouches,
			SpanDays:     payload.Plan.SpanDays,
		}
	}
	return seq, plan, nil
}
