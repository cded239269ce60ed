// Package download provides unit tests for object download operations.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/progress"
	"github.com/benms/download-s3-file/internal/storage"
	"github.com/benms/download-s3-file/internal/testutil"
	"github.com/benms/download-s3-file/s3types"
)

const (
	testBucket = "test-bucket"
	testPath   = "/out/file.bin"
)

func newFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/out", 0o755))
	return fs
}

func assertNoFile(t *testing.T, fs billy.Filesystem, path string) {
	t.Helper()
	_, err := fs.Stat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be absent, got %v", path, err)
}

// backendOnly hides any Transferer implementation of the wrapped backend.
type backendOnly struct {
	storage.Backend
}

func TestDownloader_DownloadFile_Stream(t *testing.T) {
	content := []byte("Hello, World!")
	store := testutil.NewObjectStore(testBucket)
	store.Put("greeting.txt", content, "text/plain")
	client := store.Client()
	fs := newFS(t)
	tracker := &testutil.MockProgressTracker{}

	d := New(storage.NewS3(client), fs, nil)
	result, err := d.DownloadFile(context.Background(), testBucket, "greeting.txt", testPath,
		&s3types.DownloadOptionConfig{ProgressTracker: tracker}, time.Now())
	require.NoError(t, err)

	got, err := util.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	assert.Equal(t, testBucket, result.Bucket)
	assert.Equal(t, "greeting.txt", result.Key)
	assert.Equal(t, testPath, result.Path)
	assert.Equal(t, int64(len(content)), result.Size)
	assert.Equal(t, "text/plain", result.ContentType)
	assert.Equal(t, testutil.CalculateETag(content), result.ETag)
	assert.Equal(t, s3types.StrategyStream, result.Strategy)
	assert.Equal(t, s3types.StateCompleted, result.State)
	assert.Positive(t, result.Duration)

	assert.Equal(t, testutil.ProgressUpdate{Transferred: 13, Total: 13}, tracker.Last())
	assert.True(t, tracker.Completed())

	assert.Equal(t, int64(1), client.HeadObjectCalls())
	assert.Equal(t, int64(1), client.GetObjectCalls())
	assert.Empty(t, store.Ranges())
}

func TestDownloader_DownloadFile_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mockFunc func(*testutil.MockS3Client)
		wantErr  error
		wantGets int64
	}{
		{
			name: "object not found",
			mockFunc: func(m *testutil.MockS3Client) {
				m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					return nil, &types.NotFound{}
				}
			},
			wantErr: s3errors.ErrObjectNotFound,
		},
		{
			name: "access denied",
			mockFunc: func(m *testutil.MockS3Client) {
				m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
				}
			},
			wantErr: s3errors.ErrAccessDenied,
		},
		{
			name: "body fails mid-transfer",
			mockFunc: func(m *testutil.MockS3Client) {
				m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					return &s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil
				}
				m.GetObjectFunc = func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					body := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(errors.New("connection reset by peer")))
					return &s3.GetObjectOutput{Body: io.NopCloser(body)}, nil
				}
			},
			wantErr:  s3errors.ErrTransfer,
			wantGets: 1,
		},
		{
			name: "body shorter than reported size",
			mockFunc: func(m *testutil.MockS3Client) {
				m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
					return &s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil
				}
				m.GetObjectFunc = func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("abc"))}, nil
				}
			},
			wantErr:  s3errors.ErrTransfer,
			wantGets: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testutil.MockS3Client{}
			tt.mockFunc(client)
			fs := newFS(t)
			tracker := &testutil.MockProgressTracker{}

			d := New(storage.NewS3(client), fs, nil)
			result, err := d.DownloadFile(context.Background(), testBucket, "key", testPath,
				&s3types.DownloadOptionConfig{ProgressTracker: tracker}, time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, result)
			assert.Equal(t, s3types.StateFailed, result.State)

			assertNoFile(t, fs, testPath)
			assert.Equal(t, tt.wantGets, client.GetObjectCalls())

			failed, trackerErr := tracker.Failed()
			assert.True(t, failed)
			assert.ErrorIs(t, trackerErr, tt.wantErr)
			assert.False(t, tracker.Completed())
		})
	}
}

func TestDownloader_DownloadFile_DestinationCheckedFirst(t *testing.T) {
	client := &testutil.MockS3Client{}
	fs := memfs.New()

	d := New(storage.NewS3(client), fs, nil)
	result, err := d.DownloadFile(context.Background(), testBucket, "key", "/missing/dir/file.bin", nil, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrLocalIO)
	assert.Equal(t, s3types.StateFailed, result.State)
	assert.Zero(t, client.Calls())
}

func TestDownloader_DownloadFile_Managed(t *testing.T) {
	data := testutil.GenerateRandomData(3*1024*1024 + 5)
	store := testutil.NewObjectStore(testBucket)
	store.Put("big.bin", data, "application/x-custom")

	tests := []struct {
		name    string
		backend storage.Backend
	}{
		{"sdk managed transfer", storage.NewS3(store.Client())},
		{"ranged fallback", backendOnly{storage.NewS3(store.Client())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFS(t)
			tracker := &testutil.MockProgressTracker{}

			d := New(tt.backend, fs, nil)
			result, err := d.DownloadFile(context.Background(), testBucket, "big.bin", testPath,
				&s3types.DownloadOptionConfig{
					Strategy:        s3types.StrategyManaged,
					Concurrency:     4,
					PartSize:        1024 * 1024,
					ProgressTracker: tracker,
				}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, s3types.StrategyManaged, result.Strategy)
			assert.Equal(t, int64(len(data)), result.Size)

			got, err := util.ReadFile(fs, testPath)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got), "downloaded content differs")

			updates := tracker.Snapshot()
			require.NotEmpty(t, updates)
			for i := 1; i < len(updates); i++ {
				assert.GreaterOrEqual(t, updates[i].Transferred, updates[i-1].Transferred)
			}
			assert.Equal(t, int64(len(data)), updates[len(updates)-1].Transferred)
			assert.True(t, tracker.Completed())
		})
	}
}

func TestDownloader_DownloadFile_ManagedRetryStaysWithinTotal(t *testing.T) {
	data := testutil.GenerateRandomData(2048)
	var gets atomic.Int64
	client := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
		},
		GetObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			var body io.Reader = bytes.NewReader(data)
			if gets.Add(1) == 1 {
				body = io.MultiReader(bytes.NewReader(data[:1024]), iotest.ErrReader(errors.New("connection reset by peer")))
			}
			return &s3.GetObjectOutput{
				Body:          io.NopCloser(body),
				ContentLength: aws.Int64(int64(len(data))),
				ContentRange:  aws.String(fmt.Sprintf("bytes 0-%d/%d", len(data)-1, len(data))),
			}, nil
		},
	}
	fs := newFS(t)
	tracker := &testutil.MockProgressTracker{}
	var console bytes.Buffer

	d := New(storage.NewS3(client), fs, nil)
	_, err := d.DownloadFile(context.Background(), testBucket, "key", testPath,
		&s3types.DownloadOptionConfig{
			Strategy:        s3types.StrategyManaged,
			PartSize:        1024 * 1024,
			ProgressTracker: progress.Multi(tracker, progress.NewPrinter(&console, testPath)),
		}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), client.GetObjectCalls())

	got, err := util.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	for _, u := range tracker.Snapshot() {
		assert.LessOrEqual(t, u.Transferred, u.Total)
	}
	assert.Equal(t, testutil.ProgressUpdate{Transferred: 2048, Total: 2048}, tracker.Last())
	assert.True(t, strings.HasSuffix(console.String(), "2.00 KB/2.00 KB  (100.00%)\n"), console.String())
}

// shortFS creates files that accept at most limit bytes.
type shortFS struct {
	billy.Filesystem
	limit int
}

func (s shortFS) Create(name string) (billy.File, error) {
	f, err := s.Filesystem.Create(name)
	if err != nil {
		return nil, err
	}
	return &shortFile{File: f, left: s.limit}, nil
}

type shortFile struct {
	billy.File
	left int
}

func (f *shortFile) Write(p []byte) (int, error) {
	if len(p) <= f.left {
		n, err := f.File.Write(p)
		f.left -= n
		return n, err
	}
	n, err := f.File.Write(p[:f.left])
	f.left -= n
	if err != nil {
		return n, err
	}
	return n, errors.New("no space left on device")
}

func TestDownloader_DownloadFile_StreamWriteFailureProgress(t *testing.T) {
	store := testutil.NewObjectStore(testBucket)
	store.Put("data.bin", testutil.GenerateRandomData(4096), "application/octet-stream")
	fs := shortFS{Filesystem: newFS(t), limit: 1024}
	tracker := &testutil.MockProgressTracker{}

	d := New(storage.NewS3(store.Client()), fs, nil)
	_, err := d.DownloadFile(context.Background(), testBucket, "data.bin", testPath,
		&s3types.DownloadOptionConfig{ProgressTracker: tracker}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrLocalIO)

	assert.Equal(t, testutil.ProgressUpdate{Transferred: 1024, Total: 4096}, tracker.Last())
	assertNoFile(t, fs, testPath)
}

func TestDownloader_DownloadFile_EmptyObject(t *testing.T) {
	for _, strategy := range []s3types.Strategy{s3types.StrategyStream, s3types.StrategyManaged} {
		t.Run(string(strategy), func(t *testing.T) {
			store := testutil.NewObjectStore(testBucket)
			store.Put("empty", nil, "text/plain")
			client := store.Client()
			fs := newFS(t)
			tracker := &testutil.MockProgressTracker{}

			d := New(storage.NewS3(client), fs, nil)
			result, err := d.DownloadFile(context.Background(), testBucket, "empty", testPath,
				&s3types.DownloadOptionConfig{Strategy: strategy, ProgressTracker: tracker}, time.Now())
			require.NoError(t, err)
			assert.Zero(t, result.Size)

			info, err := fs.Stat(testPath)
			require.NoError(t, err)
			assert.Zero(t, info.Size())
			assert.Zero(t, client.GetObjectCalls())

			assert.Equal(t, []testutil.ProgressUpdate{{Transferred: 0, Total: 0}}, tracker.Snapshot())
			assert.True(t, tracker.Completed())
		})
	}
}

func TestDownloader_DownloadFile_ContentType(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name        string
		storedType  string
		config      *s3types.DownloadOptionConfig
		contentType string
	}{
		{"sniffed when missing", "", &s3types.DownloadOptionConfig{DetectMIME: true}, "application/pdf"},
		{"sniffed when generic", "application/octet-stream", &s3types.DownloadOptionConfig{DetectMIME: true}, "application/pdf"},
		{"server type kept", "text/plain", &s3types.DownloadOptionConfig{DetectMIME: true}, "text/plain"},
		{"detection disabled", "", &s3types.DownloadOptionConfig{}, ""},
		{
			"response override",
			"text/plain",
			&s3types.DownloadOptionConfig{
				ResponseHeaders: s3types.ResponseHeaders{ContentType: "application/x-override"},
			},
			"application/x-override",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewObjectStore(testBucket)
			store.Put("doc", pdf, tt.storedType)

			d := New(storage.NewS3(store.Client()), newFS(t), nil)
			result, err := d.DownloadFile(context.Background(), testBucket, "doc", testPath, tt.config, time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, result.ContentType)
		})
	}
}

func TestDownloader_DownloadFile_OverwritesExisting(t *testing.T) {
	store := testutil.NewObjectStore(testBucket)
	store.Put("key", []byte("new"), "text/plain")
	fs := newFS(t)
	require.NoError(t, util.WriteFile(fs, testPath, []byte("much longer old content"), 0o644))

	d := New(storage.NewS3(store.Client()), fs, nil)
	_, err := d.DownloadFile(context.Background(), testBucket, "key", testPath, nil, time.Now())
	require.NoError(t, err)

	got, err := util.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDownloader_DownloadFile_InvalidStrategy(t *testing.T) {
	client := &testutil.MockS3Client{}
	d := New(storage.NewS3(client), newFS(t), nil)

	_, err := d.DownloadFile(context.Background(), testBucket, "key", testPath,
		&s3types.DownloadOptionConfig{Strategy: "parallel"}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrInvalidInput)
	assert.Zero(t, client.Calls())
}

func TestDownloader_DownloadFile_Canceled(t *testing.T) {
	client := &testutil.MockS3Client{
		HeadObjectFunc: func(ctx context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, ctx.Err()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := newFS(t)
	d := New(storage.NewS3(client), fs, nil)
	_, err := d.DownloadFile(ctx, testBucket, "key", testPath, nil, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assertNoFile(t, fs, testPath)
}

func TestSeekWriterAt(t *testing.T) {
	fs := newFS(t)
	f, err := fs.Create(testPath)
	require.NoError(t, err)

	w := &seekWriterAt{f: f}
	_, err = w.WriteAt([]byte("world"), 6)
	require.NoError(t, err)
	_, err = w.WriteAt([]byte("hello "), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := util.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestNeedsSniffing(t *testing.T) {
	assert.True(t, needsSniffing(""))
	assert.True(t, needsSniffing("application/octet-stream"))
	assert.True(t, needsSniffing("binary/octet-stream"))
	assert.False(t, needsSniffing("image/png"))
}
