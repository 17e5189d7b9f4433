// Package chunker splits document text into bounded-size chunks for retrieval.
//
// Text is cut along the coarsest boundary that fits: whole paragraphs first,
// then sentences, then single words. Units are packed greedily, joined by one
// space, until the next unit would push the chunk past the target size.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTargetSize is the default chunk size in characters.
const DefaultTargetSize = 512

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Chunker holds chunking settings for the ingest pipeline.
type Chunker struct {
	targetSize int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTargetSize sets the chunk size in characters.
func WithTargetSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.targetSize = size
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{targetSize: DefaultTargetSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TargetSize returns the configured chunk size.
func (c *Chunker) TargetSize() int {
	return c.targetSize
}

// Chunk splits text using the configured target size.
func (c *Chunker) Chunk(text string) []string {
	return Split(text, c.targetSize)
}

// Split cuts text into chunks of at most targetSize characters, in input order.
// Whitespace inside a chunk is collapsed to single spaces. A word longer than
// targetSize becomes a chunk of its own. targetSize <= 0 selects DefaultTargetSize.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	var units []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		if length(para) <= targetSize {
			units = append(units, para)
			continue
		}
		for _, sentence := range sentences(para) {
			if length(sentence) <= targetSize {
				units = append(units, sentence)
				continue
			}
			units = append(units, strings.Split(sentence, " ")...)
		}
	}

	return pack(units, targetSize)
}

// pack merges units greedily into chunks.
func pack(units []string, targetSize int) []string {
	var chunks []string
	var b strings.Builder
	size := 0

	for _, u := range units {
		n := length(u)
		if size > 0 && size+1+n > targetSize {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteByte(' ')
			size++
		}
		b.WriteString(u)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// sentences splits a whitespace-normalised paragraph after terminal punctuation.
func sentences(para string) []string {
	var out []string
	start := 0
	for i := 1; i < len(para); i++ {
		if para[i] != ' ' || !endsSentence(para[start:i]) {
			continue
		}
		out = append(out, para[start:i])
		start = i + 1
	}
	return append(out, para[start:])
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]`)
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
