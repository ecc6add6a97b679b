package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

var ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")

// TranscriptStore archives raw transcript text so graded results can be
// audited against the exact input.  It implements the grading service's
// transcript port.
type TranscriptStore struct {
	client *Client
	logger logging.Logger
}

// NewTranscriptStore builds the transcript archive adapter.
func NewTranscriptStore(client *Client, log logging.Logger) *TranscriptStore {
	return &TranscriptStore{client: client, logger: log}
}

func transcriptKey(transcriptID string) string {
	return fmt.Sprintf("transcripts/%s.txt", transcriptID)
}

// PutTranscript stores the raw text and returns its bucket/key path.
func (s *TranscriptStore) PutTranscript(ctx context.Context, transcriptID string, raw []byte) (string, error) {
	if transcriptID == "" {
		return "", errors.InvalidParam("transcript id is required")
	}
	bucket := s.client.TranscriptBucket()
	key := transcriptKey(transcriptID)

	_, err := s.client.API().PutObject(ctx, bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType:  "text/plain; charset=utf-8",
		UserMetadata: map[string]string{"transcript-id": transcriptID},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "transcript upload failed")
	}

	s.logger.Debug("Transcript archived",
		logging.String("transcript_id", transcriptID),
		logging.Int("bytes", len(raw)))
	return bucket + "/" + key, nil
}

// GetTranscript fetches the archived raw text.
func (s *TranscriptStore) GetTranscript(ctx context.Context, transcriptID string) ([]byte, error) {
	obj, err := s.client.API().GetObject(ctx, s.client.TranscriptBucket(), transcriptKey(transcriptID), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "transcript download failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "transcript download failed")
	}
	return data, nil
}

// DeleteTranscript removes an archived transcript.
func (s *TranscriptStore) DeleteTranscript(ctx context.Context, transcriptID string) error {
	return s.client.API().RemoveObject(ctx, s.client.TranscriptBucket(), transcriptKey(transcriptID), minio.RemoveObjectOptions{})
}

// HasTranscript reports whether a transcript is archived.
func (s *TranscriptStore) HasTranscript(ctx context.Context, transcriptID string) (bool, error) {
	_, err := s.client.API().StatObject(ctx, s.client.TranscriptBucket(), transcriptKey(transcriptID), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReportStore exports rendered grading reports and hands out download links.
type ReportStore struct {
	client *Client
	logger logging.Logger
}

// NewReportStore builds the report export adapter.
func NewReportStore(client *Client, log logging.Logger) *ReportStore {
	return &ReportStore{client: client, logger: log}
}

func reportKey(gradingID string) string {
	return fmt.Sprintf("reports/%s.json", gradingID)
}

// PutReport stores a rendered report document.
func (s *ReportStore) PutReport(ctx context.Context, gradingID string, report []byte) (string, error) {
	if gradingID == "" {
		return "", errors.InvalidParam("grading id is required")
	}
	bucket := s.client.ReportBucket()
	key := reportKey(gradingID)

	_, err := s.client.API().PutObject(ctx, bucket, key, bytes.NewReader(report), int64(len(report)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "report upload failed")
	}
	return bucket + "/" + key, nil
}

// ReportDownloadURL returns a presigned link to a stored report.
func (s *ReportStore) ReportDownloadURL(ctx context.Context, gradingID string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = s.client.config.PresignExpiry
	}
	u, err := s.client.API().PresignedGetObject(ctx, s.client.ReportBucket(), reportKey(gradingID), expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "presign failed")
	}
	return u.String(), nil
}
