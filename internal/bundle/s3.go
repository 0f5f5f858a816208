// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package bundle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/draftforge/draftforge/internal/logging"
)

// ObjectGetter is the slice of the S3 API the bundle fetcher needs.
// Implemented by *s3.Client; faked in tests.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// FetchS3 downloads the bundle archive from S3 to destZip. The download
// goes through a temp file in the destination directory and renames into
// place, so destZip is never a partial archive.
func FetchS3(ctx context.Context, client ObjectGetter, bucket, key, destZip string) error {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destZip), ".bundle-*.zip")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	if err := os.Rename(tmp.Name(), destZip); err != nil {
		return fmt.Errorf("move bundle archive into place: %w", err)
	}

	logging.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", written).
		Dur("elapsed", time.Since(start)).
		Msg("bundle archive downloaded")

	return nil
}
