package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/util"
)

const previewTTL = 15 * time.Minute

// API is the subset of the S3 client used by the gateway.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner produces time-limited GET links.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Gateway implements remote.Gateway on S3. A folder is a key prefix and a
// zero-byte "<folder>/" marker object.
type Gateway struct {
	client  API
	presign Presigner
	bucket  string
	prefix  string
}

// New loads AWS config for region and builds an S3-backed gateway.
func New(ctx context.Context, region, bucket, prefix string) (*Gateway, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return NewWithClient(client, s3.NewPresignClient(client), bucket, prefix), nil
}

// NewWithClient builds a gateway from existing clients.
func NewWithClient(client API, presign Presigner, bucket, prefix string) *Gateway {
	return &Gateway{
		client:  client,
		presign: presign,
		bucket:  bucket,
		prefix:  normalizePrefix(prefix),
	}
}

func (g *Gateway) EnsureFolder(ctx context.Context, name string) (string, error) {
	if err := remote.ValidateName(name); err != nil {
		return "", err
	}
	marker := applyPrefix(g.prefix, name) + "/"
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(marker),
	})
	if err == nil {
		return marker, nil
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("s3 head folder key=%s: %w", marker, err)
	}
	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(g.bucket),
		Key:                  aws.String(marker),
		Body:                 bytes.NewReader(nil),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put folder key=%s: %w", marker, err)
	}
	return marker, nil
}

func (g *Gateway) SaveFile(ctx context.Context, filename string, content []byte, folderName string) (remote.FileDescriptor, error) {
	if err := remote.ValidateName(filename); err != nil {
		return remote.FileDescriptor{}, err
	}
	if _, err := g.EnsureFolder(ctx, folderName); err != nil {
		return remote.FileDescriptor{}, err
	}

	key := g.objectKey(folderName, filename)
	mimeType := util.DetectMIME(content)
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(g.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(content),
		ContentType:          aws.String(mimeType),
		ContentLength:        aws.Int64(int64(len(content))),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return remote.FileDescriptor{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", g.bucket, key, err)
	}

	link, err := g.presignKey(ctx, key)
	if err != nil {
		return remote.FileDescriptor{}, err
	}
	return remote.FileDescriptor{
		ID:          key,
		Name:        filename,
		WebViewLink: link,
		MimeType:    mimeType,
		Size:        int64(len(content)),
	}, nil
}

func (g *Gateway) DeleteFiles(ctx context.Context, filename, folderName string) (int, error) {
	if err := remote.ValidateName(filename); err != nil {
		return 0, err
	}
	if err := remote.ValidateName(folderName); err != nil {
		return 0, err
	}
	key := g.objectKey(folderName, filename)
	exists, err := g.exists(ctx, key)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	if err := g.DeleteFileByID(ctx, key); err != nil {
		return 0, err
	}
	return 1, nil
}

func (g *Gateway) DeleteFileByID(ctx context.Context, id string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", g.bucket, id, err)
	}
	return nil
}

func (g *Gateway) DownloadFile(ctx context.Context, filename, folderName string) ([]byte, error) {
	if err := remote.ValidateName(filename); err != nil {
		return nil, err
	}
	key := g.objectKey(folderName, filename)
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, remote.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", g.bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read object key=%s: %w", key, err)
	}
	return data, nil
}

func (g *Gateway) PreviewURL(ctx context.Context, filename, folderName string) (string, error) {
	if err := remote.ValidateName(filename); err != nil {
		return "", err
	}
	key := g.objectKey(folderName, filename)
	exists, err := g.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", remote.ErrNotFound
	}
	return g.presignKey(ctx, key)
}

func (g *Gateway) UniqueName(ctx context.Context, filename, folderName string) (string, error) {
	if err := remote.ValidateName(folderName); err != nil {
		return "", err
	}
	return remote.ResolveUniqueName(ctx, filename, func(ctx context.Context, name string) (bool, error) {
		return g.exists(ctx, g.objectKey(folderName, name))
	})
}

func (g *Gateway) exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head object bucket=%s key=%s: %w", g.bucket, key, err)
}

func (g *Gateway) presignKey(ctx context.Context, key string) (string, error) {
	if g.presign == nil {
		return "", nil
	}
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(previewTTL))
	if err != nil {
		return "", fmt.Errorf("s3 presign key=%s: %w", key, err)
	}
	return req.URL, nil
}

func (g *Gateway) objectKey(folderName, filename string) string {
	return applyPrefix(g.prefix, folderName+"/"+filename)
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ remote.Gateway = (*Gateway)(nil)
