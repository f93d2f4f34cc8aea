// Package backup copies a store's files to and from an S3 bucket. It
// operates on a quiesced store: one that is closed, or freshly batched
// and not being written while the copy runs. The engine never depends
// on this package; it is an operational tool around it.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/packdb/packdb/pkg/datalog"
	"github.com/packdb/packdb/pkg/hashindex"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/store"
	"github.com/packdb/packdb/pkg/validation"
)

// ObjectStore is the slice of the S3 API the backup client uses.
// Tests substitute an in-memory implementation.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configure a backup client.
type Options struct {
	// Bucket receives the store files.
	Bucket string

	// Prefix namespaces the object keys, so several stores can share
	// a bucket.
	Prefix string

	// Region overrides the SDK's resolved region when set.
	Region string

	// AccessKeyID and SecretAccessKey select static credentials; when
	// empty the SDK's default chain applies (environment, shared
	// config, instance role).
	AccessKeyID     string
	SecretAccessKey string

	Logger logging.Logger
}

// Client copies store files between a directory and a bucket.
type Client struct {
	s3     ObjectStore
	bucket string
	prefix string
	log    logging.Logger
}

// Object describes one transferred file.
type Object struct {
	Name  string // file name inside the store directory
	Key   string // object key in the bucket
	Bytes int64
}

// fileMagic pairs each store file with the magic its header must carry.
var fileMagic = map[string]string{
	store.DataFileName:  datalog.Magic,
	store.IndexFileName: hashindex.Magic,
}

// New builds a client against real S3 using the SDK's configuration
// chain, with Options overriding region and credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	staticCreds := opts.AccessKeyID != "" || opts.SecretAccessKey != ""
	err := validation.NewConfigValidator("backup.Options").
		Required("Bucket", opts.Bucket).
		When(staticCreds, func(cv *validation.ConfigValidator) {
			cv.Required("AccessKeyID", opts.AccessKeyID)
			cv.Required("SecretAccessKey", opts.SecretAccessKey)
		}).
		Validate()
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), opts), nil
}

// NewWithClient builds a client over an existing ObjectStore.
func NewWithClient(s3c ObjectStore, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Client{
		s3:     s3c,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		log:    logger.With(logging.Component("backup")),
	}
}

func (c *Client) key(name string) string {
	return path.Join(c.prefix, name)
}

// Backup uploads the store files under dir to the bucket. The store
// must be quiesced; a concurrent writer would tear the copy.
func (c *Client) Backup(ctx context.Context, dir string) ([]Object, error) {
	objects := make([]Object, 0, len(fileMagic))

	for _, name := range []string{store.DataFileName, store.IndexFileName} {
		obj, err := c.uploadFile(ctx, dir, name)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	c.log.Info("store backed up",
		logging.Path(dir),
		logging.String("bucket", c.bucket),
		logging.String("prefix", c.prefix))
	return objects, nil
}

func (c *Client) uploadFile(ctx context.Context, dir, name string) (Object, error) {
	filePath := filepath.Join(dir, name)

	if err := checkMagic(filePath, fileMagic[name]); err != nil {
		return Object{}, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Object{}, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	key := c.key(name)
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	c.log.Debug("uploaded store file",
		logging.String("key", key),
		logging.Bytes(info.Size()))
	return Object{Name: name, Key: key, Bytes: info.Size()}, nil
}

// Restore downloads the store files into dir, replacing any existing
// pair atomically: each file lands under a temporary name and is
// renamed into place only after it arrived whole and carries the
// right magic.
func (c *Client) Restore(ctx context.Context, dir string) ([]Object, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create restore directory: %w", err)
	}

	objects := make([]Object, 0, len(fileMagic))
	for _, name := range []string{store.DataFileName, store.IndexFileName} {
		obj, err := c.downloadFile(ctx, dir, name)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	c.log.Info("store restored",
		logging.Path(dir),
		logging.String("bucket", c.bucket),
		logging.String("prefix", c.prefix))
	return objects, nil
}

func (c *Client) downloadFile(ctx context.Context, dir, name string) (Object, error) {
	key := c.key(name)
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".restore"

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	n, err := io.Copy(tmp, out.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := checkMagic(tmpPath, fileMagic[name]); err != nil {
		os.Remove(tmpPath)
		return Object{}, err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	c.log.Debug("restored store file",
		logging.String("key", key),
		logging.Bytes(n))
	return Object{Name: name, Key: key, Bytes: n}, nil
}

// checkMagic guards against backing up or restoring something that is
// not a store file.
func checkMagic(filePath, magic string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("failed to read header of %s: %w", filePath, err)
	}
	if string(buf) != magic {
		return fmt.Errorf("%s is not a store file (magic %q, want %q)", filePath, buf, magic)
	}
	return nil
}
