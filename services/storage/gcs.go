// Package storagesvc implements core.ObjectStorage.
package storagesvc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/genzugar/backend/core"
)

const (
	uploadTimeout = 2 * time.Minute
	deleteTimeout = 30 * time.Second
)

type bucket struct {
	client    *storage.Client
	name      string
	publicURL string // base URL objects are served from, without trailing "/"
	logger    core.Logger
}

var _ core.ObjectStorage = (*bucket)(nil) // interface compliance check

// NewGCSBucket connects to Google Cloud Storage, or to the emulator at conf.Storage.EmulatorHost when set.
// The returned func closes the client.
func NewGCSBucket(ctx context.Context, conf *core.Config, logger core.Logger) (core.ObjectStorage, func() error, error) {
	core.MustHaveDeps(core.NotNil(conf, "conf"), core.NotNil(logger, "logger"))
	sc := conf.Storage
	if sc.Bucket == "" {
		return nil, nil, errors.New("storage bucket is not configured")
	}

	var opts []option.ClientOption
	emulator := strings.TrimRight(sc.EmulatorHost, "/")
	if emulator != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulator)
		opts = append(opts, option.WithoutAuthentication(), option.WithEndpoint(emulator+"/storage/v1/"))
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating storage client")
	}

	b := &bucket{
		client:    client,
		name:      sc.Bucket,
		publicURL: publicBaseURL(sc),
		logger:    logger,
	}
	logger.Info("object storage initialized", map[string]interface{}{
		"bucket":     b.name,
		"emulator":   emulator,
		"public_url": b.publicURL,
	})
	return b, client.Close, nil
}

func publicBaseURL(sc core.StorageConfig) string {
	switch {
	case sc.CDNDomain != "":
		return "https://" + strings.Trim(sc.CDNDomain, "/")
	case sc.EmulatorHost != "":
		return strings.TrimRight(sc.EmulatorHost, "/") + "/" + sc.Bucket
	default:
		return "https://storage.googleapis.com/" + sc.Bucket
	}
}

func (b *bucket) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "writing %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "closing writer for %s", key)
	}
	return b.PublicURL(key), nil
}

func (b *bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	err := b.client.Bucket(b.name).Object(key).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	return errors.Wrapf(err, "deleting %s", key)
}

func (b *bucket) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", b.publicURL, strings.TrimLeft(key, "/"))
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".epub":
		return "application/epub+zip"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
