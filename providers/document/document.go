// Package document provides the document schema and prebuilt loading and
// splitting components for ingestion pipelines built on the graph engine.
//
// A [Document] is a piece of text with an id and free-form metadata. Loaders
// turn a [Source] into documents: [FileLoader] reads local files and
// directories, [HTMLLoader] fetches a web page and converts its HTML to
// Markdown. [TextSplitter] cuts documents into overlapping chunks sized for
// downstream consumers.
//
// Every component is also usable as a graph node: [LoaderExecutor] and
// [SplitterExecutor] adapt a loader or splitter into a
// [graph.NodeExecutorFunc], so ingestion steps compose with the rest of a
// workflow.
package document

// Metadata keys written by the components in this package. Keys prefixed
// with an underscore follow the convention for engine-assigned values that
// carry meaning across components; unprefixed keys describe provenance.
const (
	// MetaKeyScore holds a relevance score assigned during ranking.
	MetaKeyScore = "_score"
	// MetaKeyExtraInfo holds free-form auxiliary text about the document.
	MetaKeyExtraInfo = "_extra_info"
	// MetaKeySource holds the file path or URL the document was loaded from.
	MetaKeySource = "source"
	// MetaKeyChunkIndex holds the zero-based position of a chunk within its
	// parent document, written by TextSplitter.
	MetaKeyChunkIndex = "chunk_index"
)

// Document is a piece of text with an identifier and metadata. Content holds
// the text itself; Metadata carries provenance and component-assigned values
// keyed by the MetaKey constants.
//
// Documents are plain data and JSON-serializable, so they can flow along
// graph edges and survive checkpointing.
type Document struct {
	// ID uniquely identifies the document. Loaders use the source path or
	// URL; TextSplitter derives chunk ids from the parent id.
	ID string `json:"id"`

	// Content is the text of the document.
	Content string `json:"content"`

	// Metadata holds additional key/value pairs such as the source location
	// or a relevance score. It may be nil for documents without metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// String returns the document content.
func (doc Document) String() string {
	return doc.Content
}

// WithScore records a relevance score in the document metadata and returns
// the document for chaining.
func (doc *Document) WithScore(score float64) *Document {
	doc.setMeta(MetaKeyScore, score)
	return doc
}

// Score returns the relevance score recorded by WithScore, or 0 when none is
// set.
func (doc *Document) Score() float64 {
	switch value := doc.Metadata[MetaKeyScore].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	}
	return 0
}

// WithExtraInfo records auxiliary information in the document metadata and
// returns the document for chaining.
func (doc *Document) WithExtraInfo(extraInfo string) *Document {
	doc.setMeta(MetaKeyExtraInfo, extraInfo)
	return doc
}

// ExtraInfo returns the auxiliary information recorded by WithExtraInfo, or
// the empty string when none is set.
func (doc *Document) ExtraInfo() string {
	if value, ok := doc.Metadata[MetaKeyExtraInfo].(string); ok {
		return value
	}
	return ""
}

// Source returns the source location recorded by a loader, or the empty
// string when none is set.
func (doc *Document) Source() string {
	if value, ok := doc.Metadata[MetaKeySource].(string); ok {
		return value
	}
	return ""
}

func (doc *Document) setMeta(key string, value any) {
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata[key] = value
}
