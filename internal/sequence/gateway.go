package sequence

import (
	"context"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/seqapi"
)

// GatewayGenerator adapts the gateway client to the Generator interface.
type GatewayGenerator struct {
	client seqapi.Client
	model  string
}

// NewGatewayGenerator creates a gateway-backed generator. model is the
// size hint forwarded with every request.
func NewGatewayGenerator(client seqapi.Client, model string) *GatewayGenerator {
	return &GatewayGenerator{client: client, model: model}
}

func (g *GatewayGenerator) GenerateSequence(ctx context.Context, unit model.WorkUnit) (*model.Sequence, *model.SequencePlan, error) {
	resp, err := g.client.Generate(ctx, toGatewayRequest(unit, g.model))
	if err != nil {
		return nil, nil, err
	}

	seq := &model.Sequence{
		Index:       unit.Index,
		Touchpoints: make([]model.Touchpoint, 0, len(resp.Sequence.Touchpoints)),
	}
	for _, tp := range resp.Sequence.Touchpoints {
		seq.Touchpoints = append(seq.Touchpoints, model.Touchpoint{
			DayOffset: tp.DayOffset,
			Channel:   tp.Channel,
			Stage:     tp.Stage,
			Subject:   tp.Subject,
			Body:      tp.Body,
		})
	}

	var plan *model.SequencePlan
	if resp.Plan != nil {
		plan = &model.SequencePlan{
			TotalTouches: resp.Plan.TotalTouches,
			SpanDays:     resp.Plan.SpanDays,
			Channels:     resp.Plan.Channels,
		}
	}
	return seq, plan, nil
}

func toGatewayRequest(unit model.WorkUnit, modelHint string) seqapi.GenerateRequest {
	params := unit.Params
	if modelHint == "" && params != nil {
		modelHint = params.ModelHint
	}
	req := seqapi.GenerateRequest{
		Prospect: seqapi.ProspectPayload{
			Name:    unit.Prospect.Name,
			Company: unit.Prospect.Company,
			Title:   unit.Prospect.Title,
			Email:   unit.Prospect.Email,
		},
		Model: modelHint,
	}
	if params != nil {
		req.Params = seqapi.ParamsPayload{
			Channels:      params.Channels,
			Tone:          params.Tone,
			SenderName:    params.Sender.Name,
			SenderTitle:   params.Sender.Title,
			SenderCompany: params.Sender.Company,
			Context:       params.Context,
		}
	}
	return req
}
