package chunk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

// DefaultPattern selects corpus files.
const DefaultPattern = "*.txt"

// LoadDir reads the files in dir (not recursively) whose base name matches
// pattern, in lexical order. Unreadable files are reported and skipped.
func LoadDir(ctx context.Context, dir, pattern string) ([]SourceFile, []FileError, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, nil, apperrors.ValidationError(fmt.Sprintf("invalid file pattern %q", pattern), err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeFileNotFound, fmt.Sprintf("read corpus directory %s", dir), err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []SourceFile
	var failures []FileError
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			failures = append(failures, FileError{Path: path, Err: err})
			continue
		}
		files = append(files, SourceFile{Path: path, Content: content})
	}
	return files, failures, nil
}
