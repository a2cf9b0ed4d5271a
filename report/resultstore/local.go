package resultstore

import (
	"context"
	"os"
	"path"

	"github.com/rs/zerolog"
)

type localStore struct {
	logger   zerolog.Logger
	basePath string
}

func NewLocalStore(logger zerolog.Logger, basePath string) (*localStore, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &localStore{
		logger:   logger,
		basePath: basePath,
	}, nil
}

func (l *localStore) WriteRun(ctx context.Context, runID string, doc RunDocument) (string, error) {
	baseDir := path.Join(l.basePath, runID)
	if err := os.MkdirAll(baseDir, os.ModePerm); err != nil {
		return "", err
	}
	out, err := marshalRun(doc)
	if err != nil {
		return "", err
	}
	p := path.Join(baseDir, "results.json")
	l.logger.Debug().Str("path", p).Msg("writing run document")
	if err := os.WriteFile(p, out, 0644); err != nil {
		return "", err
	}
	return p, nil
}
