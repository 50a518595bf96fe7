package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKnowledgeGraph = `
components:
  - name: payment-service
    type: deployment
    relationships:
      - depends_on: postgres-primary
      - depends_on: redis-cache
  - name: postgres-primary
    type: statefulset
  - name: redis-cache
    type: deployment
`

func TestParseKnowledgeGraph(t *testing.T) {
	t.Run("valid graph", func(t *testing.T) {
		graph, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte(sampleKnowledgeGraph))
		require.NoError(t, err)
		assert.Equal(t, 3, graph.Len())

		component, ok := graph.GetComponent("payment-service")
		require.True(t, ok)
		assert.Equal(t, "deployment", component.Type)

		deps := graph.GetDependencies("payment-service")
		assert.Equal(t, []string{"postgres-primary", "redis-cache"}, deps)
	})

	t.Run("unknown component", func(t *testing.T) {
		graph, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte(sampleKnowledgeGraph))
		require.NoError(t, err)

		_, ok := graph.GetComponent("nope")
		assert.False(t, ok)
		assert.Nil(t, graph.GetDependencies("nope"))
	})

	t.Run("component without relationships", func(t *testing.T) {
		graph, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte(sampleKnowledgeGraph))
		require.NoError(t, err)
		assert.Empty(t, graph.GetDependencies("postgres-primary"))
	})

	t.Run("empty file is an error", func(t *testing.T) {
		_, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("non-mapping top level is an error", func(t *testing.T) {
		_, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte("- just\n- a\n- list\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		_, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte("components: [unclosed"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("component missing name is an error", func(t *testing.T) {
		_, err := ParseKnowledgeGraph("knowledge_graph.yaml", []byte("components:\n  - type: deployment\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})
}

func TestLoadKnowledgeGraph(t *testing.T) {
	t.Run("missing file yields empty graph", func(t *testing.T) {
		graph, err := LoadKnowledgeGraph(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 0, graph.Len())
	})

	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "knowledge_graph.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sampleKnowledgeGraph), 0644))

		graph, err := LoadKnowledgeGraph(path)
		require.NoError(t, err)
		assert.Equal(t, 3, graph.Len())
	})
}
