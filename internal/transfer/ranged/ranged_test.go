package ranged

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/storage"
	"github.com/benms/download-s3-file/internal/testutil"
	"github.com/benms/download-s3-file/s3types"
)

type bufferWriterAt struct {
	mu  sync.Mutex
	buf []byte
}

func (b *bufferWriterAt) WriteAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copy(b.buf[off:], p), nil
}

type failingWriterAt struct{}

func (failingWriterAt) WriteAt([]byte, int64) (int, error) {
	return 0, errors.New("no space left on device")
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		partSize int64
		want     []Part
	}{
		{"empty", 0, 10, nil},
		{"single part", 5, 10, []Part{{1, 0, 5}}},
		{"exact multiple", 20, 10, []Part{{1, 0, 10}, {2, 10, 10}}},
		{"remainder", 25, 10, []Part{{1, 0, 10}, {2, 10, 10}, {3, 20, 5}}},
		{"default part size", DefaultPartSize + 1, 0, []Part{{1, 0, DefaultPartSize}, {2, DefaultPartSize, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.size, tt.partSize))
		})
	}
}

func TestFetch(t *testing.T) {
	data := testutil.GenerateRandomData(100*1024 + 7)
	store := testutil.NewObjectStore("bucket")
	store.Put("obj", data, "application/octet-stream")
	backend := storage.NewS3(store.Client())

	var reported atomic.Int64
	w := &bufferWriterAt{buf: make([]byte, len(data))}

	n, err := Fetch(context.Background(), backend, "bucket", "obj", int64(len(data)), w, &storage.TransferOptions{
		Concurrency: 3,
		PartSize:    16 * 1024,
		OnBytes:     func(n int64) { reported.Add(n) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.True(t, bytes.Equal(data, w.buf))
	assert.Equal(t, int64(len(data)), reported.Load())
	assert.Len(t, store.Ranges(), 7)
}

func TestFetch_EmptyObject(t *testing.T) {
	client := &testutil.MockS3Client{}
	n, err := Fetch(context.Background(), storage.NewS3(client), "bucket", "obj", 0, &bufferWriterAt{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, client.Calls())
}

func TestFetch_MissingObject(t *testing.T) {
	store := testutil.NewObjectStore("bucket")
	_, err := Fetch(context.Background(), storage.NewS3(store.Client()), "bucket", "obj", 10,
		&bufferWriterAt{buf: make([]byte, 10)}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrObjectNotFound)
}

func TestFetch_DestinationFailure(t *testing.T) {
	store := testutil.NewObjectStore("bucket")
	store.Put("obj", []byte("some content"), "text/plain")

	_, err := Fetch(context.Background(), storage.NewS3(store.Client()), "bucket", "obj", 12, failingWriterAt{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrLocalIO)
	assert.NotErrorIs(t, err, s3errors.ErrTransfer)
}

// fakeBackend serves ranges of data and records how many Opens are in flight.
type fakeBackend struct {
	data     []byte
	short    bool
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeBackend) Stat(context.Context, string, string) (*s3types.ObjectInfo, error) {
	return &s3types.ObjectInfo{Size: int64(len(f.data))}, nil
}

func (f *fakeBackend) Open(
	ctx context.Context, _, _ string, opts *storage.GetOptions,
) (io.ReadCloser, *s3types.ObjectInfo, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	end := opts.Offset + opts.Length
	if f.short {
		end--
	}
	chunk := f.data[opts.Offset:end]
	return io.NopCloser(bytes.NewReader(chunk)), &s3types.ObjectInfo{Size: int64(len(chunk))}, nil
}

func TestFetch_RespectsConcurrency(t *testing.T) {
	backend := &fakeBackend{data: testutil.GenerateRandomData(64), delay: 5 * time.Millisecond}
	w := &bufferWriterAt{buf: make([]byte, 64)}

	n, err := Fetch(context.Background(), backend, "b", "k", 64, w, &storage.TransferOptions{
		Concurrency: 2,
		PartSize:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(64), n)
	assert.Equal(t, backend.data, w.buf)
	assert.LessOrEqual(t, backend.peak.Load(), int32(2))
}

func TestFetch_ShortPart(t *testing.T) {
	backend := &fakeBackend{data: testutil.GenerateRandomData(32), short: true}
	_, err := Fetch(context.Background(), backend, "b", "k", 32, &bufferWriterAt{buf: make([]byte, 32)},
		&storage.TransferOptions{PartSize: 16})
	require.Error(t, err)
	assert.ErrorIs(t, err, s3errors.ErrTransfer)
}

func TestFetch_Canceled(t *testing.T) {
	backend := &fakeBackend{data: testutil.GenerateRandomData(32), delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fetch(ctx, backend, "b", "k", 32, &bufferWriterAt{buf: make([]byte, 32)},
		&storage.TransferOptions{PartSize: 8})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
