// Package loader reads .hcl build documents from disk into the typed tree
// the resolver consumes. It is the only component that touches document
// files; the resolver itself never performs I/O.
package loader

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/ctxlog"
	"github.com/vk/dotplan/internal/fsutil"
)

// Extension is the build document file extension.
const Extension = ".hcl"

// Load reads the document at path: a single file, or a directory whose
// .hcl files are merged in lexical path order. Nodes keep their source
// order within each file.
func Load(ctx context.Context, path string) (*build.Document, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := documentFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No build document files found, returning empty document.", "path", path)
		return &build.Document{}, nil
	}
	logger.Debug("Loading build documents.", "path", path, "count", len(files))

	doc := &build.Document{}
	parser := hclparse.NewParser()
	for _, file := range files {
		if err := loadFile(parser, file, doc); err != nil {
			return nil, err
		}
	}

	logger.Debug("Build documents loaded.", "nodes", len(doc.Nodes), "version", doc.Version)
	return doc, nil
}

func documentFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to find document files in %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

func loadFile(parser *hclparse.Parser, path string, doc *build.Document) error {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse document file %s: %w", path, diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode document file %s: %w", path, diags)
	}

	if attr, ok := content.Attributes["version"]; ok {
		version, versionDiags := evalString(attr.Expr)
		if versionDiags.HasErrors() {
			return fmt.Errorf("failed to decode document file %s: %w", path, versionDiags)
		}
		if doc.Version != "" && doc.Version != version {
			return fmt.Errorf("document file %s declares version %q, conflicting with %q",
				path, version, doc.Version)
		}
		doc.Version = version
	}

	nodes, diags := decodeNodes(content)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode document file %s: %w", path, diags)
	}
	doc.Nodes = append(doc.Nodes, nodes...)
	return nil
}

// CheckVersion compares a document's declared version against the running
// version. The resolver assumes this pre-check has already happened; a
// mismatch is fatal only under strict checking, otherwise a warning.
func CheckVersion(ctx context.Context, doc *build.Document, running string, strict bool) error {
	if doc.Version == "" {
		if strict {
			return fmt.Errorf("document declares no version, required by strict version checking")
		}
		return nil
	}
	if doc.Version == running {
		return nil
	}
	if strict {
		return fmt.Errorf("document version %q does not match %q", doc.Version, running)
	}
	ctxlog.FromContext(ctx).Warn("Document version mismatch.",
		"document", doc.Version, "running", running)
	return nil
}
