package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

// ObjectStoreAdapter is the capability-restricted persistence environment,
// backed by an S3-compatible object store: one object per aggregate. The
// secondary stores (shadow metadata, backups, mtime index) are not
// available here; their operations return ErrNotSupported and callers are
// expected to have probed Available() first.
type ObjectStoreAdapter struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ library.PersistenceAdapter = (*ObjectStoreAdapter)(nil)

// NewObjectStoreAdapter builds the S3 client from config. A custom endpoint
// with path-style addressing supports minio and similar self-hosted stores.
func NewObjectStoreAdapter(ctx context.Context, cfg config.StorageConfig) (*ObjectStoreAdapter, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("object store requires s3_bucket to be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &ObjectStoreAdapter{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

func (a *ObjectStoreAdapter) key(name string) string {
	return path.Join(a.prefix, name)
}

func (a *ObjectStoreAdapter) LoadLibrary(ctx context.Context) (*model.LibraryDocument, error) {
	var doc model.LibraryDocument
	found, err := a.getJSON(ctx, libraryFile, &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (a *ObjectStoreAdapter) SaveLibrary(ctx context.Context, doc *model.LibraryDocument) error {
	return a.putJSON(ctx, libraryFile, doc)
}

func (a *ObjectStoreAdapter) LoadSettings(ctx context.Context) (*model.SettingsDocument, error) {
	var doc model.SettingsDocument
	found, err := a.getJSON(ctx, settingsFile, &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (a *ObjectStoreAdapter) SaveSettings(ctx context.Context, doc *model.SettingsDocument) error {
	return a.putJSON(ctx, settingsFile, doc)
}

func (a *ObjectStoreAdapter) LoadLegacy(ctx context.Context) (*model.LegacyPayload, error) {
	var keys map[string]json.RawMessage
	found, err := a.getJSON(ctx, legacyFile, &keys)
	if err != nil || !found {
		return nil, err
	}
	return &model.LegacyPayload{Keys: keys}, nil
}

func (a *ObjectStoreAdapter) Migrate(ctx context.Context, legacy *model.LegacyPayload) (*model.LibraryDocument, *model.SettingsDocument, error) {
	if legacy.Empty() {
		return nil, nil, fmt.Errorf("nothing to migrate: legacy payload is empty")
	}
	lib, set := library.DocumentsFromLegacy(legacy)
	return lib, set, nil
}

func (a *ObjectStoreAdapter) Shadow() library.ShadowStore  { return noShadowStore{} }
func (a *ObjectStoreAdapter) Backups() library.BackupStore { return noBackupStore{} }
func (a *ObjectStoreAdapter) MTimes() library.MTimeStore   { return noMTimeStore{} }

// getJSON fetches and decodes one object. Returns (false, nil) when the
// key does not exist.
func (a *ObjectStoreAdapter) getJSON(ctx context.Context, name string, into any) (bool, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return false, nil
		}
		return false, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

// putJSON uploads one object through the manager so large libraries use
// multipart uploads.
func (a *ObjectStoreAdapter) putJSON(ctx context.Context, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	return nil
}

// The secondary stores for restricted backends: nothing is supported.
// Callers are required to check Available() before relying on them.

type noShadowStore struct{}

func (noShadowStore) Available() bool { return false }
func (noShadowStore) Save(context.Context, *model.ItemMetadataRecord) error {
	return library.ErrNotSupported
}
func (noShadowStore) Read(context.Context, string) (*model.ItemMetadataRecord, error) {
	return nil, library.ErrNotSupported
}
func (noShadowStore) Delete(context.Context, string) error { return library.ErrNotSupported }

type noBackupStore struct{}

func (noBackupStore) Available() bool                                { return false }
func (noBackupStore) Write(context.Context, string, []byte) error    { return library.ErrNotSupported }
func (noBackupStore) Read(context.Context, string) ([]byte, error)   { return nil, library.ErrNotSupported }
func (noBackupStore) List(context.Context) ([]library.BackupInfo, error) {
	return nil, library.ErrNotSupported
}
func (noBackupStore) Delete(context.Context, string) error { return library.ErrNotSupported }

type noMTimeStore struct{}

func (noMTimeStore) Available() bool { return false }
func (noMTimeStore) Load(context.Context) (*model.MTimeIndex, error) {
	return nil, library.ErrNotSupported
}
func (noMTimeStore) Save(context.Context, *model.MTimeIndex) error { return library.ErrNotSupported }
