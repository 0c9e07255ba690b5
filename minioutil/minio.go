package minioutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/kjk/objstore/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// if true, uses http instead of https (e.g. for local minio)
	Insecure     bool
	RequestTrace io.Writer
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

// ConfigFromEnv builds config from MINIO_ACCESS, MINIO_SECRET, MINIO_BUCKET,
// MINIO_ENDPOINT, MINIO_REGION and MINIO_INSECURE env variables
func ConfigFromEnv() (*Config, error) {
	c := &Config{
		Access:   os.Getenv("MINIO_ACCESS"),
		Secret:   os.Getenv("MINIO_SECRET"),
		Bucket:   os.Getenv("MINIO_BUCKET"),
		Endpoint: os.Getenv("MINIO_ENDPOINT"),
		Region:   os.Getenv("MINIO_REGION"),
		Insecure: os.Getenv("MINIO_INSECURE") == "1",
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%w (set MINIO_ACCESS, MINIO_SECRET, MINIO_BUCKET and MINIO_ENDPOINT)", err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide all fields in config")
	}
	return nil
}

func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	c := config
	if err := c.validate(); err != nil {
		return nil, err
	}

	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if config.RequestTrace != nil {
		mc.TraceOn(config.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}

	return &Client{
		Client: mc,
		config: config,
		Bucket: config.Bucket,
	}, nil
}

func (c *Client) URLForPath(remotePath string) string {
	url := c.Client.EndpointURL()
	return fmt.Sprintf("%s://%s.%s/%s", url.Scheme, c.Bucket, url.Host, strings.TrimPrefix(remotePath, "/"))
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

func contentTypeFor(remotePath string) string {
	ct := mime.TypeByExtension(filepath.Ext(remotePath))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

func (c *Client) UploadFile(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeFor(remotePath),
	}
	return c.Client.FPutObject(ctx, c.Bucket, remotePath, path, opts)
}

// UploadFileBrotliCompressed uploads brotli-compressed content of path.
// remotePath should end with .br
func (c *Client) UploadFileBrotliCompressed(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	defer f.Close()
	d, err := u.BrCompressReader(f, brotli.BestCompression)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	opts := minio.PutObjectOptions{
		ContentType:     contentTypeFor(strings.TrimSuffix(remotePath, ".br")),
		ContentEncoding: "br",
	}
	return c.Client.PutObject(ctx, c.Bucket, remotePath, bytes.NewReader(d), int64(len(d)), opts)
}
