package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
)

func TestLoadProspects(t *testing.T) {
	path := writeTempYAML(t, `
prospects:
  - name: Jane Smith
    company: Acme
    phone: "555-0100"
`)
	prospects, err := loadProspects(path)
	require.NoError(t, err)
	require.Len(t, prospects, 1)
	assert.Equal(t, "555-0100", prospects[0].Phone)
}

func TestLoadProspects_Empty(t *testing.T) {
	path := writeTempYAML(t, "prospects: []\n")
	_, err := loadProspects(path)
	require.Error(t, err)
}

func TestWriteProspects_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	in := []model.Prospect{
		{Name: "Jane Smith", Company: "Acme", Phone: "555-0100", Enrichment: model.EnrichmentPartial},
	}
	require.NoError(t, writeProspects(path, in))

	// The written file stays loadable as an input file.
	out, err := loadProspects(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0], out[0])

	_, err = os.Stat(path)
	require.NoError(t, err)
}
