package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultURLExpiry = time.Hour

// S3Config points an S3Store at a bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLExpiry bounds presigned download links; zero means one hour.
	URLExpiry time.Duration
}

// normalized trims every setting, fills defaults and names all missing
// required settings at once.
func (c S3Config) normalized() (S3Config, error) {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.URLExpiry <= 0 {
		c.URLExpiry = defaultURLExpiry
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"endpoint", c.Endpoint},
		{"access key", c.AccessKey},
		{"secret key", c.SecretKey},
		{"bucket", c.Bucket},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("s3 archive: missing %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// S3Store archives runs in S3-compatible object storage. The bucket is
// created on first use; a failed check is retried by the next call.
type S3Store struct {
	client *minio.Client
	cfg    S3Config

	mu    sync.Mutex
	ready bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 archive: client: %w", err)
	}
	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) bucketReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("s3 archive: bucket %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return fmt.Errorf("s3 archive: create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	s.ready = true
	return nil
}

// locate validates the run id and path, then makes sure the bucket exists.
func (s *S3Store) locate(ctx context.Context, runID, name string) (string, error) {
	key, err := objectKey(runID, name)
	if err != nil {
		return "", err
	}
	return key, s.bucketReady(ctx)
}

func (s *S3Store) Put(ctx context.Context, runID, name string, content []byte) error {
	key, err := s.locate(ctx, runID, name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  contentType(name),
		UserMetadata: map[string]string{"run-id": strings.Trim(runID, "/ ")},
	})
	return err
}

func (s *S3Store) Get(ctx context.Context, runID, name string) ([]byte, error) {
	key, err := s.locate(ctx, runID, name)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()
	// GetObject is lazy; missing keys surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s *S3Store) List(ctx context.Context, runID string) ([]string, error) {
	prefix, err := runPrefix(runID)
	if err != nil {
		return nil, err
	}
	if err := s.bucketReady(ctx); err != nil {
		return nil, err
	}
	var out []string
	objects := s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if rel := strings.TrimPrefix(obj.Key, prefix); rel != "" && !strings.HasSuffix(rel, "/") {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetURL presigns a download link that saves under the artifact's base name.
func (s *S3Store) GetURL(ctx context.Context, runID, name string) (string, error) {
	key, err := objectKey(runID, name)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.URLExpiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// translate maps missing keys and buckets onto ErrNotFound.
func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".ts":
		return "text/typescript; charset=utf-8"
	}
	return "application/octet-stream"
}

var _ Store = (*S3Store)(nil)
