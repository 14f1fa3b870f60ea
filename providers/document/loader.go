package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source identifies where a loader reads documents from. URI is a local file
// path, a directory path, or a URL, depending on the loader.
type Source struct {
	URI string `json:"uri"`
}

// Loader turns a source into documents. Implementations decide which URI
// schemes they support and return an error for the rest.
type Loader interface {
	Load(ctx context.Context, source Source) ([]Document, error)
}

// FileLoader loads documents from the local filesystem. A file URI yields at
// most one document holding the whole file content; a directory URI yields
// one document per regular file directly inside it (non-recursive). Files
// with empty content are skipped.
//
// The zero value is ready to use. Remote URIs are rejected; use [HTMLLoader]
// for web content.
type FileLoader struct{}

// Load reads the file or directory named by source.URI.
//
// Document ids and the source metadata key are set to the file path. In
// directory mode, files that cannot be read are skipped so one bad entry
// does not fail the whole load; a single-file load returns the read error.
func (loader FileLoader) Load(ctx context.Context, source Source) ([]Document, error) {
	uri := strings.TrimSpace(source.URI)
	if uri == "" {
		return nil, fmt.Errorf("source URI cannot be empty")
	}
	if strings.Contains(uri, "://") {
		return nil, fmt.Errorf("remote URI %q not supported by FileLoader", uri)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return loader.loadDirectory(ctx, uri)
	}
	return loader.loadFile(uri)
}

func (loader FileLoader) loadFile(path string) ([]Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(content) == 0 {
		return nil, nil
	}
	doc := Document{
		ID:       path,
		Content:  string(content),
		Metadata: map[string]any{MetaKeySource: path},
	}
	return []Document{doc}, nil
}

func (loader FileLoader) loadDirectory(ctx context.Context, dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		fileDocs, err := loader.loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}
