package enrich

import (
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

// MergePhones fills missing phone (and, opportunistically, email) fields
// from the record set. Prospects that already have a phone are left exactly
// as they are: the merge only ever writes blank fields, so enrichment status
// can only move forward. The input slice is not mutated; the returned slice
// holds copies. filled counts prospects whose phone went from absent to
// present this pass.
func MergePhones(prospects []model.Prospect, records map[string]enrichapi.PhoneRecord) (merged []model.Prospect, filled int) {
	merged = make([]model.Prospect, len(prospects))
	for i, p := range prospects {
		merged[i] = p
		if p.HasPhone() {
			continue
		}
		rec, ok := Match(records, p)
		if !ok || rec.Phone == "" {
			continue
		}
		next := p.WithPhone(rec.Phone)
		if rec.Email != "" {
			next = next.WithEmail(rec.Email)
		}
		merged[i] = next
		filled++
	}
	return merged, filled
}

// AllPhonesFilled reports whether no prospect is still missing a phone.
func AllPhonesFilled(prospects []model.Prospect) bool {
	for _, p := range prospects {
		if !p.HasPhone() {
			return false
		}
	}
	return true
}
