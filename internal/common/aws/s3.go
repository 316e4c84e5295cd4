// internal/common/aws/s3.go
package aws

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// StoredObject is the result of an upload.
type StoredObject struct {
	Key         string    `json:"key"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DocumentStore uploads generated documents and hands out presigned links.
type DocumentStore struct {
	client    S3API
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
	now       func() time.Time
}

func NewDocumentStore(cfg aws.Config, bucket, prefix string, ttl time.Duration) *DocumentStore {
	client := s3.NewFromConfig(cfg)
	return NewDocumentStoreWithAPI(client, s3.NewPresignClient(client), bucket, prefix, ttl)
}

func NewDocumentStoreWithAPI(client S3API, presigner Presigner, bucket, prefix string, ttl time.Duration) *DocumentStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DocumentStore{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Key joins the configured prefix with name.
func (d *DocumentStore) Key(name string) string {
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

// Upload stores body under Key(name) and returns a presigned GET link.
func (d *DocumentStore) Upload(ctx context.Context, name, contentType string, body []byte, metadata map[string]string) (*StoredObject, error) {
	key := d.Key(name)

	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(d.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String(contentType),
		Metadata:             metadata,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}

	req, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(d.ttl))
	if err != nil {
		return nil, fmt.Errorf("s3 presign %s: %w", key, err)
	}

	return &StoredObject{
		Key:         key,
		DownloadURL: req.URL,
		ExpiresAt:   d.now().Add(d.ttl).UTC(),
	}, nil
}
