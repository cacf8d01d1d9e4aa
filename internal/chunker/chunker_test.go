package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowry/notectx/pkg/types"
)

func TestSplitBlocks(t *testing.T) {
	content := "# Kestrel\n\nFirst paragraph line one.\nLine two of the same paragraph.\n\nSecond paragraph.\n"

	blocks := SplitBlocks(content)
	require.Len(t, blocks, 3)

	assert.True(t, blocks[0].Heading)
	assert.Equal(t, "# Kestrel", blocks[0].Text)

	assert.False(t, blocks[1].Heading)
	assert.Equal(t, "First paragraph line one.\nLine two of the same paragraph.", blocks[1].Text)

	assert.Equal(t, "Second paragraph.", blocks[2].Text)

	for _, b := range blocks {
		assert.Equal(t, b.Text, content[b.Start:b.End], "block offsets must index the original content")
	}
}

func TestSplitBlocksWhitespaceOnly(t *testing.T) {
	assert.Empty(t, SplitBlocks("   \n\n\t\n"))
	assert.Empty(t, SplitBlocks(""))
}

func TestChunkNoteParagraphs(t *testing.T) {
	note := &types.Note{
		ID:   "worlds/kestrel",
		Kind: types.KindNote,
		Content: "# Kestrel Harbor\n\nThe harbor freezes over every winter solstice.\n\n" +
			"Traders arrive by ice-rigged sledges from the northern passes.\n",
	}

	c := New()
	passages := c.ChunkNote(note)
	require.Len(t, passages, 3)

	for i, p := range passages {
		assert.Equal(t, note.ID, p.NoteID)
		assert.Equal(t, i, p.Ordinal)
		assert.Equal(t, p.Text, note.Content[p.StartOff:p.EndOff], "passage offsets must index the note content")
		assert.NotEmpty(t, p.ID)
		require.NoError(t, p.Validate())
	}

	assert.Less(t, passages[0].Quality, passages[1].Quality, "a heading scores below prose")
}

func TestChunkNoteOversizedParagraph(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("The glass towers caught the late light and scattered it over the water. ")
	}
	note := &types.Note{ID: "drafts/towers", Kind: types.KindNote, Content: sb.String()}

	c := New()
	passages := c.ChunkNote(note)
	require.Greater(t, len(passages), 1)

	for _, p := range passages {
		assert.LessOrEqual(t, len(p.Text), DefaultMaxPassageChars)
		assert.Equal(t, p.Text, note.Content[p.StartOff:p.EndOff])
	}

	// Consecutive passages overlap by at most one sentence
	sentence := "The glass towers caught the late light and scattered it over the water."
	for i := 1; i < len(passages); i++ {
		prev, cur := passages[i-1], passages[i]
		if cur.StartOff < prev.EndOff {
			overlap := note.Content[cur.StartOff:prev.EndOff]
			assert.LessOrEqual(t, len(overlap), len(sentence))
		}
	}
}

func TestChunkNoteLongUnbrokenSentence(t *testing.T) {
	content := strings.Repeat("cascade resonance aurora kestrel ", 30)
	note := &types.Note{ID: "drafts/run-on", Kind: types.KindNote, Content: content}

	passages := New().ChunkNote(note)
	require.NotEmpty(t, passages)
	for _, p := range passages {
		assert.LessOrEqual(t, len(p.Text), DefaultMaxPassageChars)
		assert.Equal(t, p.Text, content[p.StartOff:p.EndOff])
	}
}

func TestChunkNoteDeterministic(t *testing.T) {
	note := &types.Note{
		ID:   "worlds/kestrel",
		Kind: types.KindNote,
		Content: "# Harbor\n\nThe harbor freezes over every winter. Traders cross on sledges. " +
			"The ice sings under their runners at dawn.\n\nSpring returns late.\n",
	}

	c := New()
	first := c.ChunkNote(note)
	second := c.ChunkNote(note)
	assert.Equal(t, first, second)
}

func TestChunkNoteStableIDs(t *testing.T) {
	note := &types.Note{ID: "a", Kind: types.KindNote, Content: "The tide returned at dusk."}

	p1 := New().ChunkNote(note)
	p2 := New().ChunkNote(note)
	require.Len(t, p1, 1)
	assert.Equal(t, p1[0].ID, p2[0].ID)

	note.Content = "The tide returned at dawn."
	p3 := New().ChunkNote(note)
	require.Len(t, p3, 1)
	assert.NotEqual(t, p1[0].ID, p3[0].ID, "changed text must change the passage ID")
}

func TestChunkNoteEmptyAndFolder(t *testing.T) {
	c := New()

	assert.Nil(t, c.ChunkNote(&types.Note{ID: "blank", Kind: types.KindNote, Content: " \n\t "}))
	assert.Nil(t, c.ChunkNote(&types.Note{ID: "dir", Kind: types.KindFolder, Content: "ignored"}))
}
