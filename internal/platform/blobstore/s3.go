package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// s3API is the subset of *s3.Client used by S3BlobStore.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object user-metadata keys.
const (
	metaOwner     = "owner-id"
	metaCategory  = "category"
	metaFileName  = "file-name"
	metaHash      = "sha256"
	metaCreatedBy = "created-by"
	metaCreatedAt = "created-at"
)

// S3BlobStore keeps blob content under blobs/<id> with metadata on the
// object, plus an empty marker under owners/<owner>/<id> for listing.
type S3BlobStore struct {
	client s3API
	bucket string
	now    func() time.Time
}

// NewS3BlobStore builds a client from the default AWS credential chain. A
// non-empty endpoint (MinIO, LocalStack) switches to path-style addressing.
func NewS3BlobStore(ctx context.Context, region, bucket, endpoint string) (*S3BlobStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return newS3BlobStore(s3.New(opts), bucket), nil
}

func newS3BlobStore(client s3API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, now: time.Now}
}

func blobKey(id string) string {
	return "blobs/" + id
}

func ownerPrefix(ownerID string) string {
	return "owners/" + ownerID + "/"
}

func (s *S3BlobStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if err := validate(&meta); err != nil {
		return nil, err
	}
	data, hash, err := readContent(content)
	if err != nil {
		return nil, err
	}

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = hash
	meta.CreatedAt = s.now().UTC().Truncate(time.Second)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(blobKey(meta.ID)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata:      encodeMetadata(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ownerPrefix(meta.OwnerID) + meta.ID),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("put owner index: %w", err)
	}

	out := meta
	return &out, nil
}

func (s *S3BlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("get object: %w", err)
	}
	meta := decodeMetadata(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength))
	return out.Body, meta, nil
}

func (s *S3BlobStore) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("head object: %w", err)
	}
	return decodeMetadata(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength)), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, id string) error {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey(id)),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ownerPrefix(meta.OwnerID) + id),
	}); err != nil {
		return fmt.Errorf("delete owner index: %w", err)
	}
	return nil
}

// ListByOwner walks the owner's index markers and loads each blob's metadata.
func (s *S3BlobStore) ListByOwner(ctx context.Context, ownerID, category string, limit, offset int) ([]*BlobMetadata, int, error) {
	var ids []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(ownerPrefix(ownerID)),
	}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, 0, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range out.Contents {
			ids = append(ids, path.Base(aws.ToString(obj.Key)))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	var matched []*BlobMetadata
	for _, id := range ids {
		meta, err := s.GetMetadata(ctx, id)
		if errors.Is(err, ErrBlobNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if category != "" && meta.Category != category {
			continue
		}
		matched = append(matched, meta)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, limit, offset), len(matched), nil
}

func encodeMetadata(meta BlobMetadata) map[string]string {
	m := map[string]string{
		metaOwner:     meta.OwnerID,
		metaCategory:  meta.Category,
		metaFileName:  url.QueryEscape(meta.FileName),
		metaHash:      meta.Hash,
		metaCreatedAt: strconv.FormatInt(meta.CreatedAt.Unix(), 10),
	}
	if meta.CreatedBy != "" {
		m[metaCreatedBy] = meta.CreatedBy
	}
	return m
}

func decodeMetadata(id string, m map[string]string, contentType string, size int64) *BlobMetadata {
	fileName, err := url.QueryUnescape(m[metaFileName])
	if err != nil {
		fileName = m[metaFileName]
	}
	meta := &BlobMetadata{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		OwnerID:     m[metaOwner],
		Category:    m[metaCategory],
		Hash:        m[metaHash],
		CreatedBy:   m[metaCreatedBy],
	}
	if sec, err := strconv.ParseInt(m[metaCreatedAt], 10, 64); err == nil {
		meta.CreatedAt = time.Unix(sec, 0).UTC()
	}
	return meta
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
