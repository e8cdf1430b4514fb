// Package archive streams purged trash records to object storage, so a
// permanent purge still leaves one recoverable copy outside the database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.mongodb.org/mongo-driver/bson"
)

// Config holds the object-storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIOSink writes one JSON object per purged trash record.
type MinIOSink struct {
	client *minio.Client
	bucket string
}

// NewMinIOSink creates the client and ensures the bucket exists.
func NewMinIOSink(cfg Config) (*MinIOSink, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOSink{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Archive uploads the record under purged/{trash-id}/{unix-nanos}.json.
// The timestamp suffix keeps repeated purges of a re-trashed id from
// overwriting each other.
func (s *MinIOSink) Archive(ctx context.Context, record bson.M) error {
	id, _ := record["_id"].(string)
	if id == "" {
		id = "unknown"
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal trash record: %w", err)
	}
	key := fmt.Sprintf("purged/%s/%d.json", id, time.Now().UnixNano())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}
