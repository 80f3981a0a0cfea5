package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

func TestKeyDerivations(t *testing.T) {
	p := model.Prospect{
		ExternalID:  "abc-1",
		Name:        "Jane DOE",
		Email:       " Jane@Acme.COM ",
		LinkedInURL: "https://linkedin.com/in/janedoe",
	}

	assert.Equal(t, "id:abc-1", IDKey(p))
	assert.Equal(t, "email:jane@acme.com", EmailKey(p))
	assert.Equal(t, "linkedin:https://linkedin.com/in/janedoe", LinkedInKey(p))
	assert.Equal(t, "name:jane doe", NameKey(p))
}

func TestKeyDerivations_MissingFields(t *testing.T) {
	p := model.Prospect{Name: "Solo Name"}
	assert.Empty(t, IDKey(p))
	assert.Empty(t, EmailKey(p))
	assert.Empty(t, LinkedInKey(p))
	assert.Equal(t, "name:solo name", NameKey(p))
}

func TestMatch_PriorityOrder(t *testing.T) {
	records := map[string]enrichapi.PhoneRecord{
		"id:42":             {Phone: "111"},
		"email:j@acme.com":  {Phone: "222"},
		"name:jane doe":     {Phone: "333"},
		"linkedin:li/jane":  {Phone: "444"},
	}

	// All keys present: external id wins.
	p := model.Prospect{ExternalID: "42", Name: "Jane Doe", Email: "j@acme.com", LinkedInURL: "li/jane"}
	rec, ok := Match(records, p)
	assert.True(t, ok)
	assert.Equal(t, "111", rec.Phone)

	// No id: email wins over linkedin and name.
	p.ExternalID = ""
	rec, _ = Match(records, p)
	assert.Equal(t, "222", rec.Phone)

	// No id or email: linkedin wins over name.
	p.Email = ""
	rec, _ = Match(records, p)
	assert.Equal(t, "444", rec.Phone)

	// Name only.
	p.LinkedInURL = ""
	rec, _ = Match(records, p)
	assert.Equal(t, "333", rec.Phone)
}

func TestMatch_NoMatch(t *testing.T) {
	records := map[string]enrichapi.PhoneRecord{"id:other": {Phone: "999"}}
	_, ok := Match(records, model.Prospect{Name: "Nobody Here"})
	assert.False(t, ok)
}

func TestRecordKeys_AllAliases(t *testing.T) {
	rec := enrichapi.PhoneRecord{
		ExternalID:  "7",
		Name:        "Ada Lovelace",
		Email:       "Ada@Math.org",
		LinkedInURL: "li/ada",
		Phone:       "555",
	}
	keys := RecordKeys(rec)
	assert.ElementsMatch(t, []string{
		"id:7",
		"email:ada@math.org",
		"linkedin:li/ada",
		"name:ada lovelace",
	}, keys)
}
