package routes

import (
	"net"
	"net/http"
	"sync"
	"testing"
)

// cmisStub 模拟 CMIS browser binding 上游，按 cmisselector + objectId 返回预置载荷。
type cmisStub struct {
	URL string

	mu       sync.Mutex
	objects  map[string]string
	children map[string]string
	parents  map[string]string
	content  map[string][]byte
	hits     map[string]int
	server   *http.Server
}

func newCMISStub(t *testing.T) *cmisStub {
	t.Helper()
	stub := &cmisStub{
		objects:  map[string]string{},
		children: map[string]string{},
		parents:  map[string]string{},
		content:  map[string][]byte{},
		hits:     map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/browser/root", stub.serve)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start upstream stub listener: %v", err)
	}
	stub.server = &http.Server{Handler: mux}
	stub.URL = "http://" + listener.Addr().String()
	go func() {
		_ = stub.server.Serve(listener)
	}()
	t.Cleanup(func() { _ = stub.server.Close() })
	return stub
}

func (s *cmisStub) serve(w http.ResponseWriter, r *http.Request) {
	selector := r.URL.Query().Get("cmisselector")
	id := r.URL.Query().Get("objectId")

	s.mu.Lock()
	s.hits[selector+":"+id]++
	var (
		body  []byte
		found bool
	)
	switch selector {
	case "object":
		var raw string
		raw, found = s.objects[id]
		body = []byte(raw)
	case "children":
		var raw string
		raw, found = s.children[id]
		body = []byte(raw)
	case "parents":
		var raw string
		raw, found = s.parents[id]
		body = []byte(raw)
	case "content":
		body, found = s.content[id]
	}
	s.mu.Unlock()

	if !found {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"exception":"objectNotFound"}`))
		return
	}
	if selector == "content" {
		w.Header().Set("Content-Type", "application/octet-stream")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(body)
}

func (s *cmisStub) hitCount(selector, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[selector+":"+id]
}

func (s *cmisStub) setObject(id, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = payload
}

const (
	rootPayload = `{"properties":{
		"cmis:objectId":{"value":"root-id"},
		"cmis:name":{"value":"Company Home"},
		"cmis:objectTypeId":{"value":"cmis:folder"},
		"cmis:path":{"value":"/"}}}`

	folderPayload = `{"properties":{
		"cmis:objectId":{"value":"folder-1"},
		"cmis:name":{"value":"Projects"},
		"cmis:objectTypeId":{"value":"cmis:folder"},
		"cmis:parentId":{"value":"root-id"},
		"cmis:path":{"value":"/Projects"}}}`

	documentPayload = `{"properties":{
		"cmis:objectId":{"value":"doc-1"},
		"cmis:name":{"value":"notes.txt"},
		"cmis:objectTypeId":{"value":"cmis:document"},
		"cmis:createdBy":{"value":"admin"},
		"cmis:creationDate":{"value":1669366179934},
		"cmis:contentStreamLength":{"value":11},
		"cmis:contentStreamMimeType":{"value":"text/plain"},
		"cmis:contentStreamFileName":{"value":"notes.txt"}}}`

	childrenPayload = `{"objects":[
		{"object":{"properties":{"cmis:objectId":{"value":"doc-1"},"cmis:name":{"value":"notes.txt"},"cmis:objectTypeId":{"value":"cmis:document"}}}},
		{"object":{"properties":{"cmis:objectId":{"value":"folder-2"},"cmis:name":{"value":"Drafts"},"cmis:objectTypeId":{"value":"F:st:sites,cmis:folder"}}}},
		{"object":{"properties":{"cmis:name":{"value":"orphan"}}}}
	],"hasMoreItems":false}`

	parentsPayload = `[{"object":{"properties":{"cmis:objectId":{"value":"folder-1"},"cmis:name":{"value":"Projects"},"cmis:objectTypeId":{"value":"cmis:folder"}}},"relativePathSegment":"notes.txt"}]`
)

func seedRepository(stub *cmisStub) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.objects[""] = rootPayload
	stub.objects["folder-1"] = folderPayload
	stub.objects["doc-1"] = documentPayload
	stub.objects["broken"] = `{"properties":`
	stub.children["folder-1"] = childrenPayload
	stub.parents["doc-1"] = parentsPayload
	stub.content["doc-1"] = []byte("hello world")
}
