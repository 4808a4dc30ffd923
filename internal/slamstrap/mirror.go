package slamstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/schollz/progressbar/v3"
)

// MirrorClient wraps an S3-compatible bucket holding snapshot tarballs, so a
// fleet of hosts can be provisioned from one pre-warmed cache instead of
// hammering the upstream forges.
type MirrorClient struct {
	Client *s3.Client
	Bucket string
}

// NewMirrorClient builds the client from config/environment values. An
// explicit endpoint selects any S3-compatible store (R2, MinIO); without one
// the SDK's default AWS resolution applies.
func NewMirrorClient(ctx context.Context, cfg *Config) (*MirrorClient, error) {
	if cfg.MirrorBucket == "" || cfg.MirrorAccessKey == "" || cfg.MirrorSecret == "" {
		return nil, configErrorf("mirror credentials missing (set MIRROR_BUCKET, ACCESS_KEY_ID, SECRET_ACCESS_KEY in /etc/slamstrap.conf or SLAMSTRAP_* env)")
	}

	region := cfg.MirrorRegion
	if region == "" {
		region = "auto"
	}

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MirrorAccessKey, cfg.MirrorSecret, "")),
		awsconfig.WithRegion(region),
	}
	if cfg.MirrorEndpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, opts ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.MirrorEndpoint}, nil
		})
		options = append(options, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load mirror config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &MirrorClient{Client: client, Bucket: cfg.MirrorBucket}, nil
}

func transferBar(size int64, desc string, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.DefaultBytesSilent(size, desc)
	}
	return progressbar.DefaultBytes(size, desc)
}

// Push uploads a snapshot and its digest sidecar.
func (m *MirrorClient) Push(ctx context.Context, cfg *Config, d *Diag, name string) error {
	archive, err := findSnapshot(cfg, name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		return err
	}
	key := filepath.Base(archive)

	bar := transferBar(int64(len(data)), "uploading "+key, cfg.Quiet)
	body := progressbar.NewReader(bytes.NewReader(data), bar)

	contentType := "application/octet-stream"
	if strings.HasSuffix(key, ".zst") {
		contentType = "application/zstd"
	}
	_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           aws.String(key),
		Body:          &body,
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if sidecar, err := os.ReadFile(archive + ".b3"); err == nil {
		_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.Bucket),
			Key:           aws.String(key + ".b3"),
			Body:          bytes.NewReader(sidecar),
			ContentLength: aws.Int64(int64(len(sidecar))),
			ContentType:   aws.String("text/plain"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload digest sidecar: %w", err)
		}
	}

	d.Okf("pushed %s to mirror", key)
	return nil
}

// Pull downloads a snapshot into the local cache and verifies its digest
// when the mirror carries a sidecar.
func (m *MirrorClient) Pull(ctx context.Context, cfg *Config, d *Diag, name string) error {
	key := name + ".tar.zst"
	out, err := m.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s from mirror: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(snapshotDir(cfg), 0o755); err != nil {
		return err
	}
	dest := filepath.Join(snapshotDir(cfg), key)
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	bar := transferBar(size, "downloading "+key, cfg.Quiet)
	_, err = io.Copy(io.MultiWriter(f, bar), out.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return err
	}

	sidecar, err := m.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    aws.String(key + ".b3"),
	})
	if err == nil {
		defer sidecar.Body.Close()
		want, err := io.ReadAll(sidecar.Body)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest+".b3", want, 0o644); err != nil {
			return err
		}
		got, err := digestFile(dest)
		if err != nil {
			return err
		}
		if got != strings.TrimSpace(string(want)) {
			os.Remove(dest)
			return fmt.Errorf("mirror copy of %s is corrupt: digest mismatch", key)
		}
	} else {
		d.Warnf("mirror has no digest sidecar for %s", key)
	}

	d.Okf("pulled %s into the snapshot cache", key)
	return nil
}

// List prints the mirror bucket contents.
func (m *MirrorClient) List(ctx context.Context, d *Diag) error {
	out, err := m.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.Bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to list mirror bucket: %w", err)
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		if strings.HasSuffix(*obj.Key, ".b3") {
			continue
		}
		size := int64(0)
		if obj.Size != nil {
			size = *obj.Size
		}
		d.Infof("%-28s %8d KiB", *obj.Key, size>>10)
	}
	return nil
}
