package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

// S3Config configures an S3 compatible endpoint such as MinIO.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Prefix is the leading key segment. Default: evidence.
	Prefix string
	// MaxTries bounds put attempts. Default: 3.
	MaxTries uint
}

// Enabled reports whether enough is configured to talk to a bucket.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects to a single bucket under date partitioned keys.
type S3Store struct {
	client   putObjectAPI
	bucket   string
	prefix   string
	maxTries uint
	now      func() time.Time
	backOff  func() backoff.BackOff
}

// NewS3Store creates a store using static credentials and path style addressing.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("S3 config is incomplete")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true, // MinIO requires path-style URLs
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client putObjectAPI, cfg S3Config) *S3Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "evidence"
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.TrimSuffix(cfg.Prefix, "/"),
		maxTries: cfg.MaxTries,
		now:      time.Now,
		backOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Put uploads data with a CRC64-NVME checksum and returns the object key.
func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := s.newKey(contentType)
	checksum := checksumCRC64NVME(data)

	op := func() (*s3.PutObjectOutput, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               aws.String(key),
			Body:              bytes.NewReader(data),
			ContentLength:     aws.Int64(int64(len(data))),
			ContentType:       aws.String(contentType),
			ChecksumAlgorithm: types.ChecksumAlgorithmCrc64nvme,
			ChecksumCRC64NVME: aws.String(checksum),
		})
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("key", key).Dur("retry_in", next).Msg("evidence put failed, retrying")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("stored object")
	return key, nil
}

// newKey builds <prefix>/YYYY/MM/DD/<hex uuid>.<ext>.
func (s *S3Store) newKey(contentType string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/%s/%s%s", s.prefix, s.now().UTC().Format("2006/01/02"), id, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}

// checksumCRC64NVME returns the base64 big-endian digest S3 expects.
func checksumCRC64NVME(data []byte) string {
	h := crc64nvme.New()
	_, _ = h.Write(data)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return base64.StdEncoding.EncodeToString(sum[:])
}
