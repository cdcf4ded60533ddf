package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/any-hub/cmis-hub/internal/cmis"
	"github.com/any-hub/cmis-hub/internal/logging"
)

type recordedRequest struct {
	path  string
	query map[string][]string
	user  string
	pass  string
	auth  bool
}

type upstreamStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newUpstreamStub(t *testing.T, handler http.HandlerFunc) *upstreamStub {
	t.Helper()
	stub := &upstreamStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		stub.mu.Lock()
		stub.requests = append(stub.requests, recordedRequest{
			path:  r.URL.Path,
			query: r.URL.Query(),
			user:  user,
			pass:  pass,
			auth:  ok,
		})
		stub.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *upstreamStub) last(t *testing.T) recordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatalf("no upstream request recorded")
	}
	return s.requests[len(s.requests)-1]
}

func newTestClient(t *testing.T, baseURL string, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BrowserURL:   baseURL + "/browser/",
		RepositoryID: "-default-",
		VerifySSL:    true,
		Timeout:      2 * time.Second,
		Logger:       logging.NewDiscardLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	client, err := New(opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return client
}

func TestRequestURLShapes(t *testing.T) {
	client := newTestClient(t, "https://cmis.example.com", nil)

	cases := []struct {
		rel  cmis.Relation
		id   string
		want string
	}{
		{cmis.RelationObject, "", "https://cmis.example.com/browser/root?cmisselector=object&succinct=false"},
		{cmis.RelationObject, "abc", "https://cmis.example.com/browser/root?cmisselector=object&objectId=abc&succinct=false"},
		{cmis.RelationChildren, "f1", "https://cmis.example.com/browser/root?cmisselector=children&objectId=f1&succinct=false"},
		{cmis.RelationParents, "d1", "https://cmis.example.com/browser/root?cmisselector=parents&objectId=d1&succinct=false"},
		{cmis.RelationContent, "d1", "https://cmis.example.com/browser/root?cmisselector=content&objectId=d1"},
	}
	for _, tc := range cases {
		if got := client.RequestURL(tc.rel, tc.id); got != tc.want {
			t.Fatalf("RequestURL(%s, %q) = %s, want %s", tc.rel, tc.id, got, tc.want)
		}
	}
}

func TestFetchSendsCredentialsAndReturnsBody(t *testing.T) {
	stub := newUpstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"properties":{}}`))
	})
	client := newTestClient(t, stub.server.URL, func(o *Options) {
		o.Username = "admin"
		o.Password = "secret"
	})

	body, err := client.Fetch(context.Background(), cmis.RelationObject, "workspace://SpacesStore/1")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(body) != `{"properties":{}}` {
		t.Fatalf("unexpected body: %s", body)
	}
	req := stub.last(t)
	if req.path != "/browser/root" {
		t.Fatalf("unexpected path: %s", req.path)
	}
	if got := req.query["objectId"]; len(got) != 1 || got[0] != "workspace://SpacesStore/1" {
		t.Fatalf("objectId should be escaped and round-trip: %v", got)
	}
	if !req.auth || req.user != "admin" || req.pass != "secret" {
		t.Fatalf("expected basic auth, got %+v", req)
	}
}

func TestFetchAnonymousWhenCredentialsIncomplete(t *testing.T) {
	stub := newUpstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	client := newTestClient(t, stub.server.URL, func(o *Options) { o.Username = "admin" })

	if _, err := client.Fetch(context.Background(), cmis.RelationChildren, "f1"); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if stub.last(t).auth {
		t.Fatalf("incomplete credentials must not send Authorization")
	}
}

func TestFetchMapsStatusCodes(t *testing.T) {
	stub := newUpstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("objectId") {
		case "missing":
			http.Error(w, `{"exception":"objectNotFound"}`, http.StatusNotFound)
		default:
			http.Error(w, strings.Repeat("x", 4096), http.StatusInternalServerError)
		}
	})
	client := newTestClient(t, stub.server.URL, nil)
	ctx := context.Background()

	if _, err := client.Fetch(ctx, cmis.RelationObject, "missing"); !errors.Is(err, cmis.ErrNotFound) {
		t.Fatalf("404 should map to ErrNotFound, got %v", err)
	}

	_, err := client.Fetch(ctx, cmis.RelationObject, "broken")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", statusErr.Status)
	}
	if len(statusErr.Body) > maxErrorBody {
		t.Fatalf("error body should be truncated, got %d bytes", len(statusErr.Body))
	}
}

func TestFetchContentReturnsRawBytes(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	stub := newUpstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	})
	client := newTestClient(t, stub.server.URL, nil)

	body, err := client.Fetch(context.Background(), cmis.RelationContent, "img")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("content bytes should be returned verbatim")
	}
	if _, ok := stub.last(t).query["succinct"]; ok {
		t.Fatalf("content requests must not carry succinct")
	}
}

func TestNewRejectsInvalidURL(t *testing.T) {
	if _, err := New(Options{BrowserURL: "ftp://cmis.local"}); err == nil {
		t.Fatalf("non-http scheme should be rejected")
	}
	if _, err := New(Options{BrowserURL: "https://cmis.local", Proxy: "://bad"}); err == nil {
		t.Fatalf("invalid proxy should be rejected")
	}
}

func TestNewHTTPClientHonorsOptions(t *testing.T) {
	client, err := newHTTPClient(Options{Timeout: 45 * time.Second, VerifySSL: false})
	if err != nil {
		t.Fatalf("newHTTPClient error: %v", err)
	}
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
	transport := client.Transport.(*http.Transport)
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("VerifySSL=false should skip certificate verification")
	}
	if transport == defaultTransport {
		t.Fatalf("shared transport must be cloned")
	}

	defaults, _ := newHTTPClient(Options{VerifySSL: true})
	if defaults.Timeout != defaultTimeout {
		t.Fatalf("zero timeout should fall back to default")
	}
}

func TestFetcherFactoryBuildsSession(t *testing.T) {
	stub := newUpstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"cmis:objectId":{"value":"root"},"cmis:objectTypeId":{"value":"cmis:folder"}}}`))
	})
	session, err := cmis.NewSessionFromParameters(map[string]any{
		cmis.ParamBrowserURL:   stub.server.URL + "/browser",
		cmis.ParamRepositoryID: "-default-",
	}, FetcherFactory(logging.NewDiscardLogger()), cmis.SessionOptions{Logger: logging.NewDiscardLogger()})
	if err != nil {
		t.Fatalf("NewSessionFromParameters error: %v", err)
	}
	root, err := session.RootFolder(context.Background())
	if err != nil {
		t.Fatalf("RootFolder error: %v", err)
	}
	if root.ID() != "root" {
		t.Fatalf("unexpected root id: %s", root.ID())
	}
	if _, ok := stub.last(t).query["objectId"]; ok {
		t.Fatalf("root request must omit objectId")
	}
}
