package chunker

import (
	"strings"

	"github.com/tlowry/notectx/internal/scorer"
	"github.com/tlowry/notectx/pkg/types"
)

const (
	// DefaultMaxPassageChars is the target maximum passage length
	DefaultMaxPassageChars = 300
)

// Chunker divides note content into passages at natural prose boundaries
type Chunker struct {
	maxChars int
}

// New creates a Chunker with the default passage size
func New() *Chunker {
	return NewWithMax(DefaultMaxPassageChars)
}

// NewWithMax creates a Chunker with a custom maximum passage length
func NewWithMax(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxPassageChars
	}
	return &Chunker{maxChars: maxChars}
}

// Block is a heading or paragraph unit with note-relative byte offsets
type Block struct {
	Text    string
	Start   int
	End     int
	Heading bool
}

// SplitBlocks divides content into heading and paragraph blocks. Headings
// form their own block; consecutive non-blank lines form a paragraph; blank
// lines separate blocks. Offsets index into the original content.
func SplitBlocks(content string) []Block {
	var blocks []Block
	curStart := -1
	curEnd := 0

	flush := func() {
		if curStart < 0 {
			return
		}
		text := content[curStart:curEnd]
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, Block{Text: text, Start: curStart, End: curEnd})
		}
		curStart = -1
	}

	off := 0
	for off <= len(content) {
		lineEnd := len(content)
		if nl := strings.IndexByte(content[off:], '\n'); nl >= 0 {
			lineEnd = off + nl
		}
		line := content[off:lineEnd]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			blocks = append(blocks, Block{Text: line, Start: off, End: lineEnd, Heading: true})
		default:
			if curStart < 0 {
				curStart = off
			}
			curEnd = lineEnd
		}

		if lineEnd == len(content) {
			break
		}
		off = lineEnd + 1
	}
	flush()

	return blocks
}

// ChunkNote converts a note into passages. Blocks within the size limit map
// to one passage each; oversized blocks are re-split at sentence boundaries
// with a one-sentence overlap carried between consecutive passages. Folder
// notes and whitespace-only content yield no passages. Identical content
// always yields identical passages.
func (c *Chunker) ChunkNote(note *types.Note) []*types.Passage {
	if note.Kind == types.KindFolder {
		return nil
	}

	var passages []*types.Passage
	ordinal := 0
	for _, block := range SplitBlocks(note.Content) {
		for _, sp := range c.splitBlock(block) {
			p := &types.Passage{
				NoteID:   note.ID,
				Ordinal:  ordinal,
				Text:     sp.text,
				StartOff: block.Start + sp.start,
				EndOff:   block.Start + sp.end,
				Quality:  scorer.Quality(sp.text),
			}
			p.ComputeID()
			passages = append(passages, p)
			ordinal++
		}
	}
	return passages
}

// span is a trimmed slice of a block, offsets relative to the block text
type span struct {
	text  string
	start int
	end   int
}

func (c *Chunker) splitBlock(b Block) []span {
	if sp, ok := trimSpan(b.Text, 0, len(b.Text)); ok && len(b.Text) <= c.maxChars {
		return []span{sp}
	}

	sentences := c.sentenceSpans(b.Text)
	return c.packSentences(b.Text, sentences)
}

// sentenceSpans splits block text at sentence boundaries, hard-splitting any
// single sentence beyond the size limit at word boundaries.
func (c *Chunker) sentenceSpans(text string) []span {
	var raw []span
	start := 0
	i := 0
	for i < len(text) {
		ch := text[i]
		if ch == '\n' {
			raw = append(raw, span{start: start, end: i})
			start = i + 1
			i++
			continue
		}
		if (ch == '.' || ch == '!' || ch == '?' || ch == ';') && i+1 < len(text) && text[i+1] == ' ' {
			raw = append(raw, span{start: start, end: i + 1})
			start = i + 2
			i += 2
			continue
		}
		i++
	}
	raw = append(raw, span{start: start, end: len(text)})

	var out []span
	for _, s := range raw {
		sp, ok := trimSpan(text, s.start, s.end)
		if !ok {
			continue
		}
		out = append(out, c.wordSplit(text, sp)...)
	}
	return out
}

// wordSplit breaks an oversized sentence at the last space before the limit
func (c *Chunker) wordSplit(text string, s span) []span {
	if s.end-s.start <= c.maxChars {
		return []span{s}
	}

	var out []span
	start := s.start
	for s.end-start > c.maxChars {
		window := text[start : start+c.maxChars]
		cut := strings.LastIndexByte(window, ' ')
		if cut <= 0 {
			cut = c.maxChars
		}
		if sp, ok := trimSpan(text, start, start+cut); ok {
			out = append(out, sp)
		}
		start += cut
	}
	if sp, ok := trimSpan(text, start, s.end); ok {
		out = append(out, sp)
	}
	return out
}

// packSentences accumulates sentences into passages up to the size limit.
// When a passage is flushed, its final sentence is carried into the next
// passage as overlap, provided it fits alongside the incoming sentence.
func (c *Chunker) packSentences(text string, sentences []span) []span {
	var out []span
	var cur []span

	flush := func() {
		if len(cur) == 0 {
			return
		}
		merged := span{
			start: cur[0].start,
			end:   cur[len(cur)-1].end,
		}
		merged.text = text[merged.start:merged.end]
		out = append(out, merged)
	}

	for _, s := range sentences {
		if len(cur) == 0 {
			cur = []span{s}
			continue
		}
		if s.end-cur[0].start <= c.maxChars {
			cur = append(cur, s)
			continue
		}

		flush()

		last := cur[len(cur)-1]
		if len(cur) > 1 && s.end-last.start <= c.maxChars {
			cur = []span{last, s}
		} else {
			cur = []span{s}
		}
	}
	flush()

	return out
}

// trimSpan narrows [start,end) past surrounding whitespace; ok is false when
// nothing remains.
func trimSpan(text string, start, end int) (span, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start >= end {
		return span{}, false
	}
	return span{text: text[start:end], start: start, end: end}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
