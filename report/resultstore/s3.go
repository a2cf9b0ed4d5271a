package resultstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
)

type s3Store struct {
	logger  zerolog.Logger
	bucket  string
	session *session.Session
}

func NewS3Store(logger zerolog.Logger, session *session.Session, bucket string) *s3Store {
	return &s3Store{
		bucket:  bucket,
		session: session,
		logger:  logger,
	}
}

func (s *s3Store) WriteRun(ctx context.Context, runID string, doc RunDocument) (string, error) {
	out, err := marshalRun(doc)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/results.json", runID)
	s.logger.Debug().Str("key", key).Msg("uploading run document")
	if _, err := s3manager.NewUploader(s.session).UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(out),
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
