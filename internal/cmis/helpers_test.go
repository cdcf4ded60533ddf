package cmis

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/any-hub/cmis-hub/internal/logging"
)

// fakeFetcher 按 relation+id 返回预置载荷，并记录每个键的调用次数。
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     map[string]int
	release   chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string][]byte{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func fetchKey(rel Relation, id string) string {
	return string(rel) + ":" + id
}

func (f *fakeFetcher) respond(rel Relation, id string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[fetchKey(rel, id)] = payload
	delete(f.errs, fetchKey(rel, id))
}

func (f *fakeFetcher) fail(rel Relation, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fetchKey(rel, id)] = err
}

func (f *fakeFetcher) count(rel Relation, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fetchKey(rel, id)]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) Fetch(ctx context.Context, rel Relation, id string) ([]byte, error) {
	key := fetchKey(rel, id)
	f.mu.Lock()
	f.calls[key]++
	release := f.release
	payload, ok := f.responses[key]
	err := f.errs[key]
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return payload, nil
}

func newTestSession(t *testing.T, fetcher Fetcher) *Session {
	t.Helper()
	session, err := NewSession(fetcher, SessionOptions{
		Logger:       logging.NewDiscardLogger(),
		RepositoryID: "test-repo",
	})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	return session
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// waitForFetch 轮询直到 rel+id 的取数次数达到 n。
func waitForFetch(t *testing.T, f *fakeFetcher, rel Relation, id string, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for f.count(rel, id) < n {
		select {
		case <-deadline:
			t.Fatalf("fetch %s %q never reached %d calls", rel, id, n)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
