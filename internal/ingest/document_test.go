package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSections(t *testing.T) {
	content := `# Motion Planning

Opening remarks before any section heading.

## Configuration Space

Bodies of text about configuration space.

## Sampling Methods

Notes on sampling.
More notes.
`

	sections := ExtractSections(content)

	require.Len(t, sections, 3)
	assert.Equal(t, "Introduction", sections[0].Label)
	assert.Contains(t, sections[0].Text, "Opening remarks")
	assert.Equal(t, "Configuration Space", sections[1].Label)
	assert.Equal(t, "Bodies of text about configuration space.", sections[1].Text)
	assert.Equal(t, "Sampling Methods", sections[2].Label)
	assert.Equal(t, "Notes on sampling.\nMore notes.", sections[2].Text)
}

func TestExtractSections_NoHeadings(t *testing.T) {
	sections := ExtractSections("Just a plain paragraph with no structure.")

	require.Len(t, sections, 1)
	assert.Equal(t, "Introduction", sections[0].Label)
	assert.Equal(t, "Just a plain paragraph with no structure.", sections[0].Text)
}

func TestExtractSections_DeeperHeadingsStartSections(t *testing.T) {
	content := "## Alpha\ntext a\n### Beta\ntext b"

	sections := ExtractSections(content)

	require.Len(t, sections, 2)
	assert.Equal(t, "Alpha", sections[0].Label)
	assert.Equal(t, "Beta", sections[1].Label)
}

func TestExtractSections_OmitsEmptySections(t *testing.T) {
	content := "## First\n\n## Second\nactual text\n## Trailing\n\n"

	sections := ExtractSections(content)

	require.Len(t, sections, 1)
	assert.Equal(t, "Second", sections[0].Label)
	assert.Equal(t, "actual text", sections[0].Text)
}

func TestExtractSections_Empty(t *testing.T) {
	assert.Empty(t, ExtractSections(""))
}

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name    string
		content string
		relPath string
		want    Metadata
	}{
		{
			name:    "title from first heading",
			content: "# Inverse Kinematics\n\nBody text.",
			relPath: "control/inverse-kinematics.md",
			want: Metadata{
				DocumentID: "inverse-kinematics",
				Title:      "Inverse Kinematics",
				Category:   "control",
			},
		},
		{
			name:    "no heading falls back to document id",
			content: "Body text without any heading.",
			relPath: "perception/depth-sensing.mdx",
			want: Metadata{
				DocumentID: "depth-sensing",
				Title:      "depth-sensing",
				Category:   "perception",
			},
		},
		{
			name:    "root level document",
			content: "# Overview\n",
			relPath: "overview.md",
			want: Metadata{
				DocumentID: "overview",
				Title:      "Overview",
				Category:   "general",
			},
		},
		{
			name:    "nested path uses first component",
			content: "# Grasping\n",
			relPath: "manipulation/advanced/grasping.md",
			want: Metadata{
				DocumentID: "grasping",
				Title:      "Grasping",
				Category:   "manipulation",
			},
		},
		{
			name:    "section heading is not a title",
			content: "## Not A Title\n\n# Real Title\n",
			relPath: "intro.md",
			want: Metadata{
				DocumentID: "intro",
				Title:      "Real Title",
				Category:   "general",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMetadata(tt.content, tt.relPath))
		})
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("doc-one", "Introduction", 0)
	b := ChunkID("doc-one", "Introduction", 0)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestChunkID_DistinctInputs(t *testing.T) {
	base := ChunkID("doc-one", "Introduction", 0)

	assert.NotEqual(t, base, ChunkID("doc-two", "Introduction", 0))
	assert.NotEqual(t, base, ChunkID("doc-one", "Background", 0))
	assert.NotEqual(t, base, ChunkID("doc-one", "Introduction", 1))
}

func TestChunkDocument(t *testing.T) {
	long := strings.Repeat(sentence, 30)
	content := "# Sensors\n\n## Tiny\nshort\n\n## Cameras\n" + long

	chunks := ChunkDocument(content, "perception/sensors.md", 1000, 200)

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, "sensors", c.DocumentID)
		assert.Equal(t, "Cameras", c.Section, "short sections must be skipped")
		assert.Equal(t, "Sensors", c.Title)
		assert.Equal(t, "perception", c.Category)
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, len(chunks), c.Total)
		assert.Empty(t, c.Embedding)
		assert.Equal(t, ChunkID("sensors", "Cameras", i), c.ID)
	}
}

func TestChunkDocument_Idempotent(t *testing.T) {
	content := "# Doc\n\n## Section\n" + strings.Repeat(sentence, 10)

	first := ChunkDocument(content, "doc.md", 300, 60)
	second := ChunkDocument(content, "doc.md", 300, 60)

	assert.Equal(t, first, second)
}

func TestChunkDocument_SkipsShortDocument(t *testing.T) {
	chunks := ChunkDocument("# Stub\n\ntoo short", "stub.md", 1000, 200)

	assert.Empty(t, chunks)
}
