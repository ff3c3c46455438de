package api

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fileworks/fileworks/internal/jobstore"
	"github.com/fileworks/fileworks/internal/storage"
)

type mockBroker struct {
	mu       sync.Mutex
	enqueued []interface{}
	err      error
}

func (b *mockBroker) Enqueue(jobType string, payload interface{}) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.enqueued = append(b.enqueued, payload)
	return uuid.New().String(), nil
}

func (b *mockBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.enqueued)
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: make(map[string]int64)}
}

func (c *memoryCounter) Get(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], nil
}

func (c *memoryCounter) Incr(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return nil
}

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *jobstore.MemoryStore
	storage *storage.MemoryStorage
	broker  *mockBroker
	counter *memoryCounter
}

const testJWTSecret = "test-secret"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := jobstore.NewMemoryStore()
	st := storage.NewMemoryStorage()
	broker := &mockBroker{}
	counter := newMemoryCounter()

	quota := &Quota{Counter: counter, Limit: 2, JWTSecret: testJWTSecret}
	server := NewServer(store, st, broker, quota, "http://localhost:8080", 10<<20)

	return &testEnv{
		server:  server,
		handler: NewRouter(server),
		store:   store,
		storage: st,
		broker:  broker,
		counter: counter,
	}
}

type filePart struct {
	field    string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for _, fp := range files {
		w, err := mw.CreateFormFile(fp.field, fp.filename)
		require.NoError(t, err)
		_, err = w.Write(fp.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}
