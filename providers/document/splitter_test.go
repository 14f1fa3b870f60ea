package document

import (
	"strings"
	"testing"
)

// --- TextSplitter Tests ---

func TestSplit_EmptyContentPassesThrough(testCase *testing.T) {
	splitter := NewTextSplitter()
	doc := Document{ID: "empty", Metadata: map[string]any{MetaKeySource: "x"}}

	chunks := splitter.Split(doc)

	if len(chunks) != 1 {
		testCase.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "empty" {
		testCase.Errorf("expected the document itself, got id %q", chunks[0].ID)
	}
	if _, exists := chunks[0].Metadata[MetaKeyChunkIndex]; exists {
		testCase.Error("passthrough document should not gain a chunk index")
	}
}

func TestSplit_ShortContentSingleChunk(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(100))
	doc := Document{ID: "d", Content: "short text"}

	chunks := splitter.Split(doc)

	if len(chunks) != 1 {
		testCase.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "d_chunk_0" {
		testCase.Errorf("unexpected chunk id: %q", chunks[0].ID)
	}
	if chunks[0].Content != "short text" {
		testCase.Errorf("unexpected chunk content: %q", chunks[0].Content)
	}
	if chunks[0].Metadata[MetaKeyChunkIndex] != 0 {
		testCase.Errorf("expected chunk index 0, got %v", chunks[0].Metadata[MetaKeyChunkIndex])
	}
}

func TestSplit_CutsAtWordBoundary(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(10), WithChunkOverlap(0))
	doc := Document{ID: "d", Content: "hello world again"}

	chunks := splitter.Split(doc)

	expected := []string{"hello", " world", " again"}
	if len(chunks) != len(expected) {
		testCase.Fatalf("expected %d chunks, got %d: %+v", len(expected), len(chunks), chunks)
	}
	for index, want := range expected {
		if chunks[index].Content != want {
			testCase.Errorf("chunk %d: expected %q, got %q", index, want, chunks[index].Content)
		}
		if chunks[index].Metadata[MetaKeyChunkIndex] != index {
			testCase.Errorf("chunk %d: unexpected index metadata %v", index, chunks[index].Metadata[MetaKeyChunkIndex])
		}
	}
}

func TestSplit_HardCutWithoutSpaces(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(10), WithChunkOverlap(0))
	doc := Document{ID: "d", Content: "abcdefghijklmnop"}

	chunks := splitter.Split(doc)

	if len(chunks) != 2 {
		testCase.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "abcdefghij" || chunks[1].Content != "klmnop" {
		testCase.Errorf("unexpected chunks: %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestSplit_OverlapRepeatsTrailingBytes(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(10), WithChunkOverlap(3))
	doc := Document{ID: "d", Content: "abcdefghijklmnop"}

	chunks := splitter.Split(doc)

	if len(chunks) != 2 {
		testCase.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "abcdefghij" {
		testCase.Errorf("unexpected first chunk: %q", chunks[0].Content)
	}
	if chunks[1].Content != "hijklmnop" {
		testCase.Errorf("expected second chunk to start with the overlap, got %q", chunks[1].Content)
	}
}

func TestSplit_OverlapLargerThanChunkStillAdvances(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(4), WithChunkOverlap(10))
	doc := Document{ID: "d", Content: "abcdefgh"}

	chunks := splitter.Split(doc)

	if len(chunks) != 2 {
		testCase.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "abcd" || chunks[1].Content != "efgh" {
		testCase.Errorf("unexpected chunks: %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestSplit_InheritsMetadataWithoutAliasing(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(100))
	doc := Document{
		ID:       "d",
		Content:  "text",
		Metadata: map[string]any{MetaKeySource: "/data/d.txt"},
	}

	chunks := splitter.Split(doc)

	if len(chunks) != 1 {
		testCase.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata[MetaKeySource] != "/data/d.txt" {
		testCase.Errorf("expected source metadata to be inherited, got %v", chunks[0].Metadata[MetaKeySource])
	}

	chunks[0].Metadata["mutated"] = true
	if _, exists := doc.Metadata["mutated"]; exists {
		testCase.Error("chunk metadata must not alias the parent document's map")
	}
}

func TestSplit_DefaultSizeAndOverlap(testCase *testing.T) {
	splitter := NewTextSplitter()
	doc := Document{ID: "d", Content: strings.Repeat("a", 1001)}

	chunks := splitter.Split(doc)

	if len(chunks) != 2 {
		testCase.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Content) != 1000 {
		testCase.Errorf("expected first chunk of 1000 bytes, got %d", len(chunks[0].Content))
	}
	// The cursor steps back by the 200-byte overlap before the final chunk.
	if len(chunks[1].Content) != 201 {
		testCase.Errorf("expected final chunk of 201 bytes, got %d", len(chunks[1].Content))
	}
}

func TestSplitterOptions_IgnoreInvalidValues(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(0), WithChunkOverlap(-5))
	doc := Document{ID: "d", Content: strings.Repeat("a", 1001)}

	chunks := splitter.Split(doc)

	if len(chunks) != 2 || len(chunks[0].Content) != 1000 {
		testCase.Errorf("expected defaults to survive invalid options, got %d chunks", len(chunks))
	}
}

func TestSplitAll_FlattensAcrossDocuments(testCase *testing.T) {
	splitter := NewTextSplitter(WithChunkSize(5), WithChunkOverlap(0))
	docs := []Document{
		{ID: "one", Content: "aaaaabbbbb"},
		{ID: "two", Content: "cc"},
	}

	chunks := splitter.SplitAll(docs)

	if len(chunks) != 3 {
		testCase.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	expectedIDs := []string{"one_chunk_0", "one_chunk_1", "two_chunk_0"}
	for index, want := range expectedIDs {
		if chunks[index].ID != want {
			testCase.Errorf("chunk %d: expected id %q, got %q", index, want, chunks[index].ID)
		}
	}
}
