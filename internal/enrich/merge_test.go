package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

func TestMergePhones_FillsMissingOnly(t *testing.T) {
	prospects := []model.Prospect{
		{Name: "Has Phone", Phone: "555", Email: "hp@x.com"},
		{Name: "Needs Phone", Email: "np@x.com"},
	}
	records := map[string]enrichapi.PhoneRecord{
		"email:hp@x.com": {Phone: "999"}, // must NOT overwrite 555
		"email:np@x.com": {Phone: "777"},
	}

	merged, filled := MergePhones(prospects, records)
	assert.Equal(t, 1, filled)
	assert.Equal(t, "555", merged[0].Phone, "existing phone never overwritten")
	assert.Equal(t, "777", merged[1].Phone)
}

func TestMergePhones_DoesNotMutateInput(t *testing.T) {
	prospects := []model.Prospect{{Name: "Jane Doe"}}
	records := map[string]enrichapi.PhoneRecord{"name:jane doe": {Phone: "123"}}

	merged, filled := MergePhones(prospects, records)
	require.Equal(t, 1, filled)
	assert.Equal(t, "123", merged[0].Phone)
	assert.Empty(t, prospects[0].Phone, "caller's slice must stay untouched")
}

func TestMergePhones_EnrichmentStatusMonotonic(t *testing.T) {
	prospects := []model.Prospect{
		{Name: "Jane Doe", Enrichment: model.EnrichmentMinimal},
	}
	records := map[string]enrichapi.PhoneRecord{
		"name:jane doe": {Phone: "123", Email: "jane@x.com"},
	}

	merged, _ := MergePhones(prospects, records)
	assert.Equal(t, model.EnrichmentEnriched, merged[0].Enrichment)
	assert.True(t, merged[0].Enrichment.AtLeast(model.EnrichmentMinimal))

	// A second merge pass with an emptier record set cannot regress anything.
	again, filled := MergePhones(merged, map[string]enrichapi.PhoneRecord{})
	assert.Zero(t, filled)
	assert.Equal(t, model.EnrichmentEnriched, again[0].Enrichment)
	assert.Equal(t, "123", again[0].Phone)
}

func TestMergePhones_RecordWithoutPhoneIgnored(t *testing.T) {
	prospects := []model.Prospect{{Name: "Jane Doe"}}
	records := map[string]enrichapi.PhoneRecord{
		"name:jane doe": {Email: "only-email@x.com"},
	}

	merged, filled := MergePhones(prospects, records)
	assert.Zero(t, filled)
	assert.Empty(t, merged[0].Phone)
	assert.Empty(t, merged[0].Email, "email rides along only when a phone was filled")
}

func TestAllPhonesFilled(t *testing.T) {
	assert.True(t, AllPhonesFilled(nil))
	assert.True(t, AllPhonesFilled([]model.Prospect{{Phone: "1"}, {Phone: "2"}}))
	assert.False(t, AllPhonesFilled([]model.Prospect{{Phone: "1"}, {}}))
}
