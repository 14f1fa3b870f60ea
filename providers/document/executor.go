package document

import (
	"context"
	"fmt"

	"github.com/blueskygzhz/eino-cpp-sub002/core/graph"
	"github.com/blueskygzhz/eino-cpp-sub002/core/parse"
)

// LoaderExecutor adapts a loader into a graph node executor. The node's
// input value names the source: a [Source], a plain URI string, or any value
// convertible to a Source (such as the map shape a checkpoint restore
// produces). The node's output is the loaded []Document slice.
//
// Example:
//
//	builder.AddNode("load", document.LoaderExecutor(document.FileLoader{}))
func LoaderExecutor(loader Loader) graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
		source, err := sourceFromValue(input.Value())
		if err != nil {
			return nil, err
		}
		docs, err := loader.Load(ctx, source)
		if err != nil {
			return nil, err
		}
		return &graph.NodeResult{
			Output:   docs,
			Metadata: map[string]any{"documents": len(docs)},
		}, nil
	}
}

// SplitterExecutor adapts a splitter into a graph node executor. The node's
// input value may be a []Document, a single [Document], a plain string
// (wrapped as an anonymous document), or any value convertible to
// []Document. The node's output is the flattened chunk slice.
//
// Example:
//
//	builder.AddNode("split", document.SplitterExecutor(document.NewTextSplitter()))
func SplitterExecutor(splitter *TextSplitter) graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
		docs, err := documentsFromValue(input.Value())
		if err != nil {
			return nil, err
		}
		chunks := splitter.SplitAll(docs)
		return &graph.NodeResult{
			Output:   chunks,
			Metadata: map[string]any{"chunks": len(chunks)},
		}, nil
	}
}

func sourceFromValue(value any) (Source, error) {
	switch typed := value.(type) {
	case Source:
		return typed, nil
	case *Source:
		return *typed, nil
	case string:
		return Source{URI: typed}, nil
	case nil:
		return Source{}, fmt.Errorf("loader node received no input")
	default:
		source, err := parse.ValueAs[Source](value)
		if err != nil {
			return Source{}, fmt.Errorf("loader node input %T is not a source: %w", value, err)
		}
		return source, nil
	}
}

func documentsFromValue(value any) ([]Document, error) {
	switch typed := value.(type) {
	case []Document:
		return typed, nil
	case Document:
		return []Document{typed}, nil
	case *Document:
		return []Document{*typed}, nil
	case string:
		return []Document{{Content: typed}}, nil
	case nil:
		return nil, fmt.Errorf("splitter node received no input")
	default:
		docs, err := parse.ValueAs[[]Document](value)
		if err != nil {
			return nil, fmt.Errorf("splitter node input %T is not a document list: %w", value, err)
		}
		return docs, nil
	}
}
