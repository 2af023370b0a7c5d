package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/types"
)

const scenarioYAML = `scenarioId: saas-renewal
title: SaaS renewal negotiation
goals:
  - id: g2
    description: Propose a multi-year plan
    priority: 2
  - id: g1
    description: Identify budget owner
    criteria: ["asks who signs off"]
    isRequired: true
    priority: 1
references:
  - id: pricing
    title: Price sheet
    path: docs/pricing.md
  - id: faq
    title: FAQ
    text: Annual plans include support.
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "pricing.md"), []byte("Standard plan: 100 USD"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "renewal.yaml"), []byte(scenarioYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cold-call.yml"), []byte("title: Cold call\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)

	sc, err := c.Get("saas-renewal")
	require.NoError(t, err)
	require.Len(t, sc.Goals, 2)
	assert.Equal(t, "g1", sc.Goals[0].ID, "goals ordered by priority")
	assert.True(t, sc.Goals[0].IsRequired)
	assert.Equal(t, []string{"asks who signs off"}, sc.Goals[0].Criteria)
	assert.Equal(t, "Standard plan: 100 USD", sc.References[0].Text)
	assert.True(t, sc.HasKnowledgeBase())

	cold, err := c.Get("cold-call")
	require.NoError(t, err, "id defaults to file name")
	assert.False(t, cold.HasKnowledgeBase())

	assert.Len(t, c.List(), 2)
}

func TestLoadMissingDir(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, c.List())
}

func TestLoadBadReference(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("scenarioId: x\nreferences:\n  - id: r\n    path: missing.md\n"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestGetUnknown(t *testing.T) {
	c := New(types.Scenario{ScenarioID: "a"})
	_, err := c.Get("b")
	assert.ErrorIs(t, err, types.ErrScenarioNotFound)
}
