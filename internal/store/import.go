package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImportFile adds every record of a collection file to the collection named by
// the file's base name, creating the collection if needed. It returns that id
// and the number of imported documents. The source file is left in place.
func (s *Store) ImportFile(ctx context.Context, path string) (string, int, error) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, FileSuffix) {
		return "", 0, fmt.Errorf("%w: %s does not end in %s", ErrInvalidCollectionID, base, FileSuffix)
	}
	id := strings.TrimSuffix(base, FileSuffix)
	if err := ValidateID(id); err != nil {
		return "", 0, err
	}
	if filepath.Clean(filepath.Dir(path)) == filepath.Clean(s.dataDir) {
		return "", 0, fmt.Errorf("refusing to import %s from the data directory", base)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open import file: %w", err)
	}
	docs, err := DecodeAll(f)
	f.Close()
	if err != nil {
		return "", 0, fmt.Errorf("decode import file %s: %w", base, err)
	}

	if err := s.CreateCollection(ctx, id, 0); err != nil {
		return "", 0, err
	}
	if err := s.AddDocuments(ctx, id, docs); err != nil {
		return "", 0, err
	}
	s.logger.Info("collection file imported",
		zap.String("collection", id),
		zap.String("path", path),
		zap.Int("documents", len(docs)),
	)
	return id, len(docs), nil
}
