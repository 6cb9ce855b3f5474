package storage

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/minio/crc64nvme"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu       sync.Mutex
	failures int
	calls    int
	inputs   []*s3.PutObjectInput
	bodies   [][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("503 slow down")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

var testConfig = S3Config{Endpoint: "http://minio:9000", Bucket: "evidence-bucket", AccessKey: "k", SecretKey: "s"}

func TestS3Config_Enabled(t *testing.T) {
	require.True(t, testConfig.Enabled())

	cfg := testConfig
	cfg.Bucket = ""
	require.False(t, cfg.Enabled())
	require.False(t, S3Config{}.Enabled())
}

func TestNew_DisabledWithoutConfig(t *testing.T) {
	st, err := New(S3Config{Endpoint: "http://minio:9000"})
	require.NoError(t, err)

	key, err := st.Put(context.Background(), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakeS3{}
	st := newS3Store(fake, testConfig)
	st.now = func() time.Time { return time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC) }

	data := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	key, err := st.Put(context.Background(), data, "image/jpeg")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^evidence/2024/05/01/[0-9a-f]{32}\.jpg$`), key)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	require.Equal(t, "evidence-bucket", aws.ToString(in.Bucket))
	require.Equal(t, key, aws.ToString(in.Key))
	require.Equal(t, "image/jpeg", aws.ToString(in.ContentType))
	require.Equal(t, types.ChecksumAlgorithmCrc64nvme, in.ChecksumAlgorithm)
	require.Equal(t, data, fake.bodies[0])

	raw, err := base64.StdEncoding.DecodeString(aws.ToString(in.ChecksumCRC64NVME))
	require.NoError(t, err)
	h := crc64nvme.New()
	_, _ = h.Write(data)
	require.Equal(t, h.Sum64(), binary.BigEndian.Uint64(raw))
}

func fastRetry(st *S3Store) *S3Store {
	st.backOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return st
}

func TestS3Store_PutRetries(t *testing.T) {
	t.Run("recovers from transient failures", func(t *testing.T) {
		fake := &fakeS3{failures: 2}
		st := fastRetry(newS3Store(fake, testConfig))

		key, err := st.Put(context.Background(), []byte("x"), "image/jpeg")
		require.NoError(t, err)
		require.NotEmpty(t, key)
		require.Equal(t, 3, fake.calls)
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		fake := &fakeS3{failures: 10}
		cfg := testConfig
		cfg.MaxTries = 2
		st := fastRetry(newS3Store(fake, cfg))

		_, err := st.Put(context.Background(), []byte("x"), "image/jpeg")
		require.Error(t, err)
		require.Equal(t, 2, fake.calls)
	})
}

func TestExtensionFor(t *testing.T) {
	require.Equal(t, ".jpg", extensionFor("image/jpeg"))
	require.Equal(t, ".png", extensionFor("image/png"))
	require.Equal(t, ".bin", extensionFor("application/octet-stream"))
}
