// Package enrich merges late-arriving phone/email data into an existing
// prospect list. Records arrive via provider webhooks, indexed under several
// imprecise keys; a background poller matches and fills missing fields.
package enrich

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

// caseFolder normalizes names for matching; simple ASCII lowering is not
// enough for prospect names outside English.
var caseFolder = cases.Fold()

// A KeyFunc derives one candidate lookup key from a prospect, or "" when the
// source field is absent.
type KeyFunc func(model.Prospect) string

// IDKey matches on the provider's external identifier.
func IDKey(p model.Prospect) string {
	if p.ExternalID == "" {
		return ""
	}
	return "id:" + p.ExternalID
}

// EmailKey matches on the lowercased email address.
func EmailKey(p model.Prospect) string {
	if !p.HasEmail() {
		return ""
	}
	return "email:" + strings.ToLower(strings.TrimSpace(p.Email))
}

// LinkedInKey matches on the LinkedIn profile URL.
func LinkedInKey(p model.Prospect) string {
	if p.LinkedInURL == "" {
		return ""
	}
	return "linkedin:" + strings.TrimSpace(p.LinkedInURL)
}

// NameKey matches on the case-folded full name. It is the least precise key
// and therefore tried last.
func NameKey(p model.Prospect) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ""
	}
	return "name:" + caseFolder.String(name)
}

// matchKeys is the fixed priority order: most precise first, first match wins.
var matchKeys = []KeyFunc{IDKey, EmailKey, LinkedInKey, NameKey}

// Match finds the first record matching any of the prospect's derived keys,
// tried in priority order against the one shared record map.
func Match(records map[string]enrichapi.PhoneRecord, p model.Prospect) (enrichapi.PhoneRecord, bool) {
	for _, derive := range matchKeys {
		key := derive(p)
		if key == "" {
			continue
		}
		if rec, ok := records[key]; ok {
			return rec, true
		}
	}
	return enrichapi.PhoneRecord{}, false
}

// RecordKeys derives every storable key for an incoming record, in the same
// shape Match will later probe with. Used by the webhook receiver to index
// one record under all of its aliases.
func RecordKeys(rec enrichapi.PhoneRecord) []string {
	p := model.Prospect{
		ExternalID:  rec.ExternalID,
		Name:        rec.Name,
		Email:       rec.Email,
		LinkedInURL: rec.LinkedInURL,
	}
	var keys []string
	for _, derive := range matchKeys {
		if key := derive(p); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
