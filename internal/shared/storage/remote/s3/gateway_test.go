package s3

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"docmanager-backend/internal/shared/storage/remote"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + aws.ToString(in.Key)}, nil
}

func TestGatewayLifecycle(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	g := NewWithClient(api, fakePresigner{}, "bucket", "/docs/")

	fd, err := g.SaveFile(ctx, "report.pdf", []byte("%PDF-1.4 body"), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "docs/a@x.com/report.pdf", fd.ID)
	require.Equal(t, "https://signed.example/docs/a@x.com/report.pdf", fd.WebViewLink)
	require.Equal(t, "application/pdf", fd.MimeType)
	require.Contains(t, api.objects, "docs/a@x.com/")

	data, err := g.DownloadFile(ctx, "report.pdf", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 body", string(data))

	url, err := g.PreviewURL(ctx, "report.pdf", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, fd.WebViewLink, url)

	name, err := g.UniqueName(ctx, "report.pdf", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "report_1.pdf", name)

	n, err := g.DeleteFiles(ctx, "report.pdf", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = g.DeleteFiles(ctx, "report.pdf", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, err = g.DownloadFile(ctx, "report.pdf", "a@x.com")
	require.ErrorIs(t, err, remote.ErrNotFound)

	_, err = g.PreviewURL(ctx, "report.pdf", "a@x.com")
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "a@x.com/file.pdf", want: "a@x.com/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "a@x.com/file.pdf", want: "root/a@x.com/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/a@x.com/file.pdf", want: "root/a@x.com/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}
