package model

// CampaignParams are the generation parameters shared by every prospect in
// one orchestration run.
type CampaignParams struct {
	Channels  []string      `json:"channels" yaml:"channels"`
	Tone      string        `json:"tone" yaml:"tone"`
	Sender    SenderProfile `json:"sender" yaml:"sender"`
	Context   string        `json:"context,omitempty" yaml:"context,omitempty"`
	ModelHint string        `json:"model_hint,omitempty" yaml:"model_hint,omitempty"`
}

// SenderProfile identifies who the sequence is written as.
type SenderProfile struct {
	Name    string `json:"name" yaml:"name"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Company string `json:"company" yaml:"company"`
}

// WorkUnit is one prospect plus the shared campaign parameters. The index
// is the prospect's position in the original input and is the identity used
// for result placement and progress accounting. Immutable once built.
type WorkUnit struct {
	Index    int
	Prospect Prospect
	Params   *CampaignParams
}

// Touchpoint is one step in a generated sequence.
type Touchpoint struct {
	DayOffset int    `json:"day_offset"`
	Channel   string `json:"channel"`
	Stage     string `json:"stage,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Sequence is the generated multi-touch outreach plan for one prospect.
// Index is the originating WorkUnit index.
type Sequence struct {
	Index       int          `json:"index"`
	Touchpoints []Touchpoint `json:"touchpoints"`
}

// SequencePlan is the touchpoint schedule metadata. It depends only on the
// shared parameters, so it is captured from the first successful response.
type SequencePlan struct {
	TotalTouches int      `json:"total_touches"`
	SpanDays     int      `json:"span_days"`
	Channels     []string `json:"channels,omitempty"`
}

// GenerationReport is the aggregated outcome of one orchestration run.
type GenerationReport struct {
	Sequences []Sequence     `json:"sequences"`
	Plan      *SequencePlan  `json:"plan,omitempty"`
	Failed    map[int]string `json:"failed,omitempty"`
	// PartialFailure is true when some units failed but at least one
	// succeeded. A run where every unit failed is reported as an error
	// instead.
	PartialFailure bool `json:"partial_failure"`
}
