// Package storage writes published posts to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
)

const markdownContentType = "text/markdown; charset=utf-8"

// ArchiveConfig locates the bucket that receives published posts.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioArchive implements services.PostArchive on an S3-compatible bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioArchive connects to the object store and creates the bucket if it
// does not exist.
func NewMinioArchive(ctx context.Context, cfg ArchiveConfig, logger *slog.Logger) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created archive bucket", "bucket", cfg.Bucket)
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// ArchivePublished writes the post as markdown and returns its object key.
// Republishing overwrites the previous copy.
func (a *MinioArchive) ArchivePublished(ctx context.Context, post *models.Post) (string, error) {
	key := ObjectKey(post)
	body := RenderMarkdown(post)

	_, err := a.client.PutObject(ctx, a.bucket, key, strings.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: markdownContentType})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Ping checks that the bucket is reachable.
func (a *MinioArchive) Ping(ctx context.Context) error {
	_, err := a.client.BucketExists(ctx, a.bucket)
	return err
}

// ObjectKey is where a published post is stored.
func ObjectKey(post *models.Post) string {
	return path.Join("published", post.UserID, post.ID+".md")
}

// RenderMarkdown renders the title as a top-level heading followed by the body.
func RenderMarkdown(post *models.Post) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(post.Title)
	b.WriteString("\n\n")
	if body := doctree.Markdown(post.Body); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}
