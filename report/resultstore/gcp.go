package resultstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

type gcpStore struct {
	logger zerolog.Logger
	bucket string
	client *storage.Client
	creds  *google.Credentials
}

func NewGCPStore(
	logger zerolog.Logger, client *storage.Client, creds *google.Credentials, bucket string,
) *gcpStore {
	return &gcpStore{
		bucket: bucket,
		client: client,
		logger: logger,
		creds:  creds,
	}
}

func (s *gcpStore) WriteRun(ctx context.Context, runID string, doc RunDocument) (string, error) {
	out, err := marshalRun(doc)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/results.json", runID)
	s.logger.Debug().
		Str("key", key).
		Str("project", s.creds.ProjectID).
		Msg("uploading run document")
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := wc.Write(out); err != nil {
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}
