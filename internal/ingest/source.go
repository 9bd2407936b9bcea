// Package ingest turns scraped JSON documents into embedded knowledge base
// records. Documents that cannot be read or understood are skipped and
// reported; they never abort a build.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceDocument is one raw JSON document and where it came from.
type SourceDocument struct {
	Source string
	Data   []byte
}

// Skip records a document, or one element of a document, left out of a build.
type Skip struct {
	Source string `json:"source"`
	// Element is the position inside a flat list, or -1 for the whole document.
	Element int    `json:"element"`
	Reason  string `json:"reason"`
}

// LoadFiles expands paths (files, directories and glob patterns) into JSON
// source documents in lexical order. Unreadable files are reported as skips.
func LoadFiles(paths []string) ([]SourceDocument, []Skip, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				add(m)
				continue
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && IsSourceFile(path) {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
		}
	}
	sort.Strings(files)

	var (
		docs  []SourceDocument
		skips []Skip
	)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			skips = append(skips, Skip{Source: f, Element: -1, Reason: err.Error()})
			continue
		}
		docs = append(docs, SourceDocument{Source: f, Data: data})
	}
	return docs, skips, nil
}

// IsSourceFile reports whether path looks like a scraped JSON document.
func IsSourceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
