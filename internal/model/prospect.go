package model

import "strings"

// EnrichmentStatus describes how much contact data a prospect carries.
type EnrichmentStatus string

const (
	// EnrichmentMinimal means neither phone nor email is known.
	EnrichmentMinimal EnrichmentStatus = "minimal"
	// EnrichmentPartial means exactly one of phone or email is known.
	EnrichmentPartial EnrichmentStatus = "partial"
	// EnrichmentEnriched means both phone and email are known.
	EnrichmentEnriched EnrichmentStatus = "enriched"
)

// rank orders statuses so merges can only move a prospect forward.
func (s EnrichmentStatus) rank() int {
	switch s {
	case EnrichmentPartial:
		return 1
	case EnrichmentEnriched:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether s is the same or a later stage than other.
func (s EnrichmentStatus) AtLeast(other EnrichmentStatus) bool {
	return s.rank() >= other.rank()
}

// Prospect is one person targeted by an outreach campaign. Phone and email
// may arrive late via the enrichment webhook; until then they are empty.
type Prospect struct {
	ExternalID  string           `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Name        string           `json:"name" yaml:"name"`
	FirstName   string           `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName    string           `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Company     string           `json:"company" yaml:"company"`
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	Email       string           `json:"email,omitempty" yaml:"email,omitempty"`
	Phone       string           `json:"phone,omitempty" yaml:"phone,omitempty"`
	LinkedInURL string           `json:"linkedin_url,omitempty" yaml:"linkedin_url,omitempty"`
	Enrichment  EnrichmentStatus `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
}

// HasPhone reports whether a phone number is already present.
func (p Prospect) HasPhone() bool {
	return strings.TrimSpace(p.Phone) != ""
}

// HasEmail reports whether an email address is already present.
func (p Prospect) HasEmail() bool {
	return strings.TrimSpace(p.Email) != ""
}

// ComputedEnrichment derives the status from the fields actually present.
func (p Prospect) ComputedEnrichment() EnrichmentStatus {
	switch {
	case p.HasPhone() && p.HasEmail():
		return EnrichmentEnriched
	case p.HasPhone() || p.HasEmail():
		return EnrichmentPartial
	default:
		return EnrichmentMinimal
	}
}

// WithPhone returns a copy with the phone filled in only if it was blank.
// The enrichment status is raised, never lowered.
func (p Prospect) WithPhone(phone string) Prospect {
	if p.HasPhone() || strings.TrimSpace(phone) == "" {
		return p
	}
	out := p
	out.Phone = phone
	out.Enrichment = raiseStatus(out.Enrichment, out.ComputedEnrichment())
	return out
}

// WithEmail returns a copy with the email filled in only if it was blank.
func (p Prospect) WithEmail(email string) Prospect {
	if p.HasEmail() || strings.TrimSpace(email) == "" {
		return p
	}
	out := p
	out.Email = email
	out.Enrichment = raiseStatus(out.Enrichment, out.ComputedEnrichment())
	return out
}

func raiseStatus(current, candidate EnrichmentStatus) EnrichmentStatus {
	if candidate.rank() > current.rank() {
		return candidate
	}
	if current == "" {
		return EnrichmentMinimal
	}
	return current
}
