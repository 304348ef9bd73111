package utils

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/juju/errors"
)

// SnapshotStore keeps immutable JSON documents by key.
type SnapshotStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

// S3SnapshotStore writes snapshots to one bucket.
type S3SnapshotStore struct {
	client *s3.Client
	bucket string
}

func NewS3SnapshotStore(client *s3.Client, bucket string) *S3SnapshotStore {
	return &S3SnapshotStore{client: client, bucket: bucket}
}

func (s *S3SnapshotStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Annotatef(err, "uploading s3://%s/%s", s.bucket, key)
	}
	return nil
}

// MenuSnapshotKey is where a published week is archived.
func MenuSnapshotKey(schoolID uuid.UUID, year, week int) string {
	return fmt.Sprintf("menus/%s/%04d-W%02d.json", schoolID, year, week)
}
