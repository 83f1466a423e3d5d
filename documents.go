package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"genfill/core"
	"genfill/host"
)

// resultSuffix is appended to the base name of every exported document.
const resultSuffix = "-genfill"

// openDocuments opens every path inside one host scope, in order, so the last
// path ends up as the active document.
func openDocuments(ctx context.Context, editor host.Editor, paths []string) ([]host.DocumentInfo, error) {
	if len(paths) == 0 {
		return nil, core.ErrNoDocuments()
	}

	var docs []host.DocumentInfo
	err := editor.WithExclusiveAccess(ctx, "Open Documents", func(ctx context.Context) error {
		ids := make([]int, 0, len(paths))
		for _, path := range paths {
			id, err := editor.OpenDocument(ctx, path)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		all, err := editor.Documents(ctx)
		if err != nil {
			return err
		}
		byID := make(map[int]host.DocumentInfo, len(all))
		for _, doc := range all {
			byID[doc.ID] = doc
		}
		for _, id := range ids {
			docs = append(docs, byID[id])
		}
		return nil
	})
	return docs, err
}

// parseSelection reads "left,top,right,bottom" in document pixels.
func parseSelection(raw string) (core.SelectionBounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return core.SelectionBounds{}, fmt.Errorf("selection %q: want left,top,right,bottom", raw)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return core.SelectionBounds{}, fmt.Errorf("selection %q: %w", raw, err)
		}
		v[i] = n
	}
	if v[2] <= v[0] || v[3] <= v[1] {
		return core.SelectionBounds{}, fmt.Errorf("selection %q: right and bottom must exceed left and top", raw)
	}
	return core.NewSelectionBounds(v[0], v[1], v[2], v[3]), nil
}

// exportedDocument is one written result file.
type exportedDocument struct {
	Name string
	Path string
	Size int64
}

// exportDocuments writes the composite of each document to outDir as
// "<name>-genfill.png". Documents closed during the run are skipped.
func exportDocuments(ctx context.Context, editor host.Editor, docs []host.DocumentInfo, outDir string) ([]exportedDocument, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var exported []exportedDocument
	err := editor.WithExclusiveAccess(ctx, "Export Documents", func(ctx context.Context) error {
		for _, doc := range docs {
			stem := strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
			path := filepath.Join(outDir, stem+resultSuffix+".png")
			if err := editor.ExportPNG(ctx, doc.ID, path); err != nil {
				if errors.Is(err, host.ErrDocumentNotFound) {
					continue
				}
				return err
			}
			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}
			exported = append(exported, exportedDocument{Name: doc.Name, Path: path, Size: size})
		}
		return nil
	})
	return exported, err
}

// selectDocument makes doc active and sets its live selection.
func selectDocument(ctx context.Context, editor *host.MemoryEditor, doc host.DocumentInfo, bounds *core.SelectionBounds) error {
	if bounds != nil {
		if err := editor.SetSelection(doc.ID, *bounds); err != nil {
			return err
		}
	}
	return editor.WithExclusiveAccess(ctx, "Select Document", func(ctx context.Context) error {
		return editor.SelectDocument(ctx, doc.ID)
	})
}
