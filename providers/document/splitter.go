package document

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the default maximum chunk length in bytes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default overlap between consecutive chunks
	// in bytes.
	DefaultChunkOverlap = 200
)

// TextSplitter cuts documents into chunks of at most a configured size, with
// a configurable overlap between consecutive chunks. Splitting is
// byte-oriented: the splitter prefers to cut at the last space before the
// size limit so words stay intact, and falls back to a hard cut when a chunk
// contains no space.
//
// Each chunk inherits the parent document's metadata, gains a chunk_index
// entry, and is identified as "<parent id>_chunk_<n>".
type TextSplitter struct {
	chunkSize int
	overlap   int
}

// SplitterOption configures a TextSplitter.
type SplitterOption func(*TextSplitter)

// WithChunkSize sets the maximum chunk length in bytes. Values below one are
// ignored. Default is [DefaultChunkSize].
func WithChunkSize(chunkSize int) SplitterOption {
	return func(splitter *TextSplitter) {
		if chunkSize > 0 {
			splitter.chunkSize = chunkSize
		}
	}
}

// WithChunkOverlap sets how many bytes consecutive chunks share. Negative
// values are ignored; zero disables overlap. Default is
// [DefaultChunkOverlap].
func WithChunkOverlap(overlap int) SplitterOption {
	return func(splitter *TextSplitter) {
		if overlap >= 0 {
			splitter.overlap = overlap
		}
	}
}

// NewTextSplitter returns a TextSplitter with [DefaultChunkSize] and
// [DefaultChunkOverlap], adjusted by the given options.
func NewTextSplitter(options ...SplitterOption) *TextSplitter {
	splitter := &TextSplitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, option := range options {
		option(splitter)
	}
	return splitter
}

// Split cuts one document into chunks. A document with empty content is
// returned unchanged as its own single chunk.
func (splitter *TextSplitter) Split(doc Document) []Document {
	if doc.Content == "" {
		return []Document{doc}
	}

	content := doc.Content
	var chunks []Document
	pos := 0
	for chunkCount := 0; pos < len(content); chunkCount++ {
		chunkStart := pos
		chunkEnd := chunkStart + splitter.chunkSize
		if chunkEnd > len(content) {
			chunkEnd = len(content)
		}

		// Prefer a word boundary: cut at the last space at or before the
		// size limit, as long as that keeps the chunk non-empty.
		if chunkEnd < len(content) {
			if lastSpace := strings.LastIndexByte(content[:chunkEnd+1], ' '); lastSpace > chunkStart {
				chunkEnd = lastSpace
			}
		}

		metadata := make(map[string]any, len(doc.Metadata)+1)
		for key, value := range doc.Metadata {
			metadata[key] = value
		}
		metadata[MetaKeyChunkIndex] = chunkCount

		chunks = append(chunks, Document{
			ID:       fmt.Sprintf("%s_chunk_%d", doc.ID, chunkCount),
			Content:  content[chunkStart:chunkEnd],
			Metadata: metadata,
		})

		// Step the cursor back by the overlap, but never to or before the
		// chunk start: the cursor must always advance.
		pos = chunkEnd
		if splitter.overlap > 0 && pos < len(content) {
			if backtrack := chunkEnd - splitter.overlap; backtrack > chunkStart {
				pos = backtrack
			}
		}
	}
	return chunks
}

// SplitAll splits every document and returns the chunks flattened in input
// order.
func (splitter *TextSplitter) SplitAll(docs []Document) []Document {
	var chunks []Document
	for _, doc := range docs {
		chunks = append(chunks, splitter.Split(doc)...)
	}
	return chunks
}
