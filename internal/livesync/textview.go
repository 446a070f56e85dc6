package livesync

import (
	"strings"
	"sync"
	"unicode/utf16"
)

// Pos is a 0-based line and column in the text. Columns count UTF-16 code
// units, the way the browser indexes a textarea.
type Pos struct {
	Line int `json:"line" doc:"0-based line"`
	Ch   int `json:"ch" doc:"0-based column in UTF-16 code units"`
}

// Mark is a highlighted span of the text.
type Mark struct {
	Start int    `json:"start" doc:"Byte offset of the first byte"`
	End   int    `json:"end" doc:"Byte offset after the last byte"`
	From  Pos    `json:"from" doc:"Start position; the cursor is placed here"`
	To    Pos    `json:"to" doc:"End position"`
	Text  string `json:"text" doc:"Marked text"`
}

// TextView is the capability the editor widget exposes. The core never
// reaches into the widget beyond these calls.
type TextView interface {
	SetText(text string)
	Text() string
	Search(pattern string) (Mark, bool)
	SetHighlight(m *Mark)
	Highlight() (Mark, bool)
}

// Buffer is the server-side TextView: it holds the text and at most one mark.
type Buffer struct {
	mu   sync.RWMutex
	text string
	mark *Mark
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// SetText replaces the text. The mark survives only if the marked span
// still holds the same text.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	if b.mark != nil && !spans(text, *b.mark) {
		b.mark = nil
	}
}

// spans reports whether m still covers m.Text in text.
func spans(text string, m Mark) bool {
	return m.Start >= 0 && m.Start <= m.End && m.End <= len(text) && text[m.Start:m.End] == m.Text
}

func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Search returns the span of the first occurrence of pattern.
func (b *Buffer) Search(pattern string) (Mark, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if pattern == "" {
		return Mark{}, false
	}
	i := strings.Index(b.text, pattern)
	if i < 0 {
		return Mark{}, false
	}
	end := i + len(pattern)
	return Mark{
		Start: i,
		End:   end,
		From:  position(b.text, i),
		To:    position(b.text, end),
		Text:  b.text[i:end],
	}, true
}

// SetHighlight replaces the mark; nil clears it. A mark that does not match
// the current text, e.g. one found before an edit, clears it as well.
func (b *Buffer) SetHighlight(m *Mark) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m == nil || !spans(b.text, *m) {
		b.mark = nil
		return
	}
	cp := *m
	b.mark = &cp
}

func (b *Buffer) Highlight() (Mark, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.mark == nil {
		return Mark{}, false
	}
	return *b.mark, true
}

func position(text string, offset int) Pos {
	head := text[:offset]
	nl := strings.LastIndexByte(head, '\n')
	return Pos{
		Line: strings.Count(head, "\n"),
		Ch:   utf16Len(head[nl+1:]),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
