package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blueskygzhz/eino-cpp-sub002/core/graph"
)

// --- Graph Adapter Tests ---

func TestLoaderExecutor_InGraphPipeline(testCase *testing.T) {
	dir := testCase.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("alpha beta gamma"), 0o644); err != nil {
		testCase.Fatalf("write fixture: %v", err)
	}

	compiled, err := graph.New("ingest").
		AddNode("load", LoaderExecutor(FileLoader{})).
		AddNode("split", SplitterExecutor(NewTextSplitter(WithChunkSize(8), WithChunkOverlap(0)))).
		AddEdge("load", "split").
		Compile()
	if err != nil {
		testCase.Fatalf("compile failed: %v", err)
	}

	result, err := compiled.Invoke(context.Background(), path)
	if err != nil {
		testCase.Fatalf("invoke failed: %v", err)
	}

	chunks, ok := result.Output.([]Document)
	if !ok {
		testCase.Fatalf("expected []Document output, got %T", result.Output)
	}
	if len(chunks) != 3 {
		testCase.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "alpha" {
		testCase.Errorf("unexpected first chunk: %q", chunks[0].Content)
	}
	if !strings.HasSuffix(chunks[0].ID, "_chunk_0") {
		testCase.Errorf("expected chunk id derived from the file path, got %q", chunks[0].ID)
	}
	if chunks[0].Source() != path {
		testCase.Errorf("expected source metadata to survive splitting, got %q", chunks[0].Source())
	}
}

func TestLoaderExecutor_PropagatesLoadError(testCase *testing.T) {
	compiled, err := graph.New("ingest").
		AddNode("load", LoaderExecutor(FileLoader{})).
		Compile()
	if err != nil {
		testCase.Fatalf("compile failed: %v", err)
	}

	_, err = compiled.Invoke(context.Background(), "/no/such/file")
	if err == nil {
		testCase.Fatal("expected run to fail")
	}

	var nodeErr *graph.NodeError
	if !errors.As(err, &nodeErr) {
		testCase.Fatalf("expected NodeError, got %T", err)
	}
	if nodeErr.Node != "load" {
		testCase.Errorf("expected failure in 'load', got %q", nodeErr.Node)
	}
	if !strings.Contains(err.Error(), "failed to stat") {
		testCase.Errorf("unexpected error: %v", err)
	}
}

func TestLoaderExecutor_AcceptsSourceValue(testCase *testing.T) {
	dir := testCase.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		testCase.Fatalf("write fixture: %v", err)
	}

	executor := LoaderExecutor(FileLoader{})
	result, err := executor(context.Background(), &graph.NodeInput{
		Fields: map[string]any{"src": Source{URI: path}},
	})
	if err != nil {
		testCase.Fatalf("execute failed: %v", err)
	}
	docs := result.Output.([]Document)
	if len(docs) != 1 || docs[0].Content != "content" {
		testCase.Errorf("unexpected documents: %+v", docs)
	}
}

func TestLoaderExecutor_RejectsMissingInput(testCase *testing.T) {
	executor := LoaderExecutor(FileLoader{})
	_, err := executor(context.Background(), &graph.NodeInput{Fields: map[string]any{}})
	if err == nil || !strings.Contains(err.Error(), "received no input") {
		testCase.Errorf("expected missing-input error, got %v", err)
	}
}

func TestSplitterExecutor_AcceptsPlainString(testCase *testing.T) {
	compiled, err := graph.New("split-only").
		AddNode("split", SplitterExecutor(NewTextSplitter(WithChunkSize(100)))).
		Compile()
	if err != nil {
		testCase.Fatalf("compile failed: %v", err)
	}

	result, err := compiled.Invoke(context.Background(), "hello world")
	if err != nil {
		testCase.Fatalf("invoke failed: %v", err)
	}

	chunks := result.Output.([]Document)
	if len(chunks) != 1 {
		testCase.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "hello world" {
		testCase.Errorf("unexpected chunk content: %q", chunks[0].Content)
	}
}

func TestSplitterExecutor_AcceptsSerializedDocuments(testCase *testing.T) {
	// Checkpoint restore erases concrete types: a []Document routed through
	// a snapshot arrives as []any of maps. The adapter must still accept it.
	serialized := []any{
		map[string]any{"id": "d1", "content": "alpha beta"},
		map[string]any{"id": "d2", "content": "gamma"},
	}

	executor := SplitterExecutor(NewTextSplitter(WithChunkSize(100)))
	result, err := executor(context.Background(), &graph.NodeInput{
		Fields: map[string]any{"docs": serialized},
	})
	if err != nil {
		testCase.Fatalf("execute failed: %v", err)
	}

	chunks := result.Output.([]Document)
	if len(chunks) != 2 {
		testCase.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "d1_chunk_0" || chunks[1].ID != "d2_chunk_0" {
		testCase.Errorf("unexpected chunk ids: %q, %q", chunks[0].ID, chunks[1].ID)
	}
}

func TestSplitterExecutor_ReportsChunkCountMetadata(testCase *testing.T) {
	executor := SplitterExecutor(NewTextSplitter(WithChunkSize(5), WithChunkOverlap(0)))
	result, err := executor(context.Background(), &graph.NodeInput{
		Fields: map[string]any{"doc": Document{ID: "d", Content: "aaaaabbbbb"}},
	})
	if err != nil {
		testCase.Fatalf("execute failed: %v", err)
	}
	if result.Metadata["chunks"] != 2 {
		testCase.Errorf("expected chunk count metadata 2, got %v", result.Metadata["chunks"])
	}
}
