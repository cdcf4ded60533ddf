package cmis

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/cmis-hub/internal/logging"
)

// Index 标识 Session 持有的缓存索引，用于观测与统计。
type Index string

const (
	IndexObjects         Index = "objects"
	IndexChildren        Index = "children"
	IndexParents         Index = "parents"
	IndexProperties      Index = "properties"
	IndexContentMetadata Index = "content_metadata"
	IndexRoot            Index = "root"
)

// Observer 接收缓存命中/未命中与取数失败事件，实现方不得阻塞。
type Observer interface {
	CacheHit(index Index)
	CacheMiss(index Index)
	FetchFailed(rel Relation, reason Reason)
}

type noopObserver struct{}

func (noopObserver) CacheHit(Index) {}

func (noopObserver) CacheMiss(Index) {}

func (noopObserver) FetchFailed(Relation, Reason) {}

// SessionOptions 控制 Session 的可选依赖。
type SessionOptions struct {
	Logger       *logrus.Logger
	Observer     Observer
	RepositoryID string
}

// CMISVersionSupported 是 RepositoryInfo 中报告的协议版本。
const CMISVersionSupported = "1.1"

// RepositoryInfo 是仓库的最小描述。
type RepositoryInfo struct {
	ID                   string `json:"id"`
	CMISVersionSupported string `json:"cmisVersionSupported"`
}

// CacheStats 是各索引条目数的快照。
type CacheStats struct {
	Objects         int  `json:"objects"`
	Children        int  `json:"children"`
	Parents         int  `json:"parents"`
	Properties      int  `json:"properties"`
	ContentMetadata int  `json:"content_metadata"`
	RootLoaded      bool `json:"root_loaded"`
}

// Session 是缓存编排器：五个按对象 id 索引的缓存加一个根目录槽位，
// 全部由同一把 RWMutex 保护，因此读者永远看不到"部分淘汰"的状态。
// 条目一旦写入就原样返回，直到显式淘汰，没有 TTL。
// 同一 (relation, id) 的并发未命中会通过 singleflight 合并为一次取数。
// gen 在每次淘汰时递增，淘汰前发起的取数结果不会回写缓存。
type Session struct {
	fetcher      Fetcher
	logger       *logrus.Logger
	observer     Observer
	repositoryID string

	mu          sync.RWMutex
	objects     map[string]Object
	children    map[string][]Object
	parents     map[string][]*Folder
	properties  map[string]Properties
	contentMeta map[string]ContentMetadata
	root        *Folder
	gen         uint64

	flight singleflight.Group
}

// NewSession 构造 Session。每个仓库应持有独立的 Session，缓存互不共享。
func NewSession(fetcher Fetcher, opts SessionOptions) (*Session, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var observer Observer = noopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}
	return &Session{
		fetcher:      fetcher,
		logger:       logger,
		observer:     observer,
		repositoryID: opts.RepositoryID,
		objects:      make(map[string]Object),
		children:     make(map[string][]Object),
		parents:      make(map[string][]*Folder),
		properties:   make(map[string]Properties),
		contentMeta:  make(map[string]ContentMetadata),
	}, nil
}

// RepositoryInfo 返回仓库 id 与支持的 CMIS 版本。
func (s *Session) RepositoryInfo() RepositoryInfo {
	return RepositoryInfo{ID: s.repositoryID, CMISVersionSupported: CMISVersionSupported}
}

// CreateObjectID 只构造标识，不做 I/O 也不访问缓存。
func (s *Session) CreateObjectID(id string) ObjectID {
	return NewObjectID(id)
}

// RootFolder 返回仓库根目录。首次调用取数并记忆在独立槽位中，之后无条件返回同一实例，
// 直到 ClearCache。取数失败时返回错误且不记忆。
func (s *Session) RootFolder(ctx context.Context) (*Folder, error) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root != nil {
		s.observer.CacheHit(IndexRoot)
		return root, nil
	}
	s.observer.CacheMiss(IndexRoot)

	v, err := s.do(ctx, "root", RelationObject, "", func(ctx context.Context, gen uint64) (any, error) {
		s.mu.RLock()
		root := s.root
		s.mu.RUnlock()
		if root != nil {
			return root, nil
		}

		payload, err := s.fetcher.Fetch(ctx, RelationObject, "")
		if err != nil {
			return nil, transportError(RelationObject, "", err)
		}
		tree, err := decodeTree(payload)
		if err != nil {
			return nil, decodeError(RelationObject, "", err)
		}
		var props Properties
		if m, ok := tree.(map[string]any); ok {
			props = parseProperties(m["properties"])
		}
		folder := newFolder(s, props)

		s.commit(gen, func() { s.root = folder })
		return folder, nil
	})
	if err != nil {
		s.observer.FetchFailed(RelationObject, ReasonOf(err))
		return nil, err
	}
	return v.(*Folder), nil
}

// GetObject 按 id 先查对象缓存，未命中时取数并水合。对象不存在或任何失败都返回 nil。
func (s *Session) GetObject(ctx context.Context, id ObjectID) Object {
	obj, err := s.LoadObject(ctx, id)
	if err != nil {
		s.logNavigationFailure(RelationObject, id.ID(), err)
		return nil
	}
	return obj
}

// LoadObject 是 GetObject 的严格版本：返回 *FetchError，不存在时 errors.Is(err, ErrNotFound)。
func (s *Session) LoadObject(ctx context.Context, id ObjectID) (Object, error) {
	key := id.ID()
	if obj, ok := s.CachedObject(key); ok {
		s.observer.CacheHit(IndexObjects)
		return obj, nil
	}
	s.observer.CacheMiss(IndexObjects)

	v, err := s.do(ctx, flightKey(RelationObject, key), RelationObject, key, func(ctx context.Context, gen uint64) (any, error) {
		if obj, ok := s.CachedObject(key); ok {
			return obj, nil
		}

		payload, err := s.fetcher.Fetch(ctx, RelationObject, key)
		if err != nil {
			return nil, transportError(RelationObject, key, err)
		}
		tree, err := decodeTree(payload)
		if err != nil {
			return nil, decodeError(RelationObject, key, err)
		}
		m, _ := tree.(map[string]any)
		rawProps, ok := m["properties"]
		if !ok || rawProps == nil {
			return nil, &FetchError{Relation: RelationObject, ObjectID: key, Reason: ReasonNotFound}
		}
		props := parseProperties(rawProps)
		if _, ok := props.String(PropObjectID); !ok {
			return nil, decodeError(RelationObject, key, errMissingObjectID)
		}
		obj := s.hydrate(props)

		s.commit(gen, func() {
			s.objects[key] = obj
			s.properties[key] = props
		})
		return obj, nil
	})
	if err != nil {
		s.observer.FetchFailed(RelationObject, ReasonOf(err))
		return nil, err
	}
	return v.(Object), nil
}

// Refresh 淘汰 id 在全部索引中的条目后重新取数，相当于整体替换该对象的属性。
func (s *Session) Refresh(ctx context.Context, id ObjectID) (Object, error) {
	s.RemoveObjectFromCache(id)
	return s.LoadObject(ctx, id)
}

// LoadFolder 取对象并要求它是文件夹。
func (s *Session) LoadFolder(ctx context.Context, id ObjectID) (*Folder, error) {
	obj, err := s.LoadObject(ctx, id)
	if err != nil {
		return nil, err
	}
	folder, ok := obj.(*Folder)
	if !ok {
		return nil, ErrNotFolder
	}
	return folder, nil
}

// LoadDocument 取对象并要求它是文档。
func (s *Session) LoadDocument(ctx context.Context, id ObjectID) (*Document, error) {
	obj, err := s.LoadObject(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, ok := obj.(*Document)
	if !ok {
		return nil, ErrNotDocument
	}
	return doc, nil
}

func (s *Session) loadChildren(ctx context.Context, folderID string) ([]Object, error) {
	if cached, ok := s.CachedChildren(folderID); ok {
		s.observer.CacheHit(IndexChildren)
		return cached, nil
	}
	s.observer.CacheMiss(IndexChildren)

	v, err := s.do(ctx, flightKey(RelationChildren, folderID), RelationChildren, folderID, func(ctx context.Context, gen uint64) (any, error) {
		if cached, ok := s.CachedChildren(folderID); ok {
			return cached, nil
		}
		entries, err := s.fetchEntries(ctx, RelationChildren, folderID)
		if err != nil {
			return nil, err
		}
		children := make([]Object, 0, len(entries))
		for _, props := range entries {
			children = append(children, s.hydrate(props))
		}
		s.commit(gen, func() { s.children[folderID] = children })
		return children, nil
	})
	if err != nil {
		s.observer.FetchFailed(RelationChildren, ReasonOf(err))
		return nil, err
	}
	return v.([]Object), nil
}

func (s *Session) loadParents(ctx context.Context, objectID string) ([]*Folder, error) {
	if cached, ok := s.CachedParents(objectID); ok {
		s.observer.CacheHit(IndexParents)
		return cached, nil
	}
	s.observer.CacheMiss(IndexParents)

	v, err := s.do(ctx, flightKey(RelationParents, objectID), RelationParents, objectID, func(ctx context.Context, gen uint64) (any, error) {
		if cached, ok := s.CachedParents(objectID); ok {
			return cached, nil
		}
		entries, err := s.fetchEntries(ctx, RelationParents, objectID)
		if err != nil {
			return nil, err
		}
		parents := make([]*Folder, 0, len(entries))
		for _, props := range entries {
			parents = append(parents, newFolder(s, props))
		}
		s.commit(gen, func() { s.parents[objectID] = parents })
		return parents, nil
	})
	if err != nil {
		s.observer.FetchFailed(RelationParents, ReasonOf(err))
		return nil, err
	}
	return v.([]*Folder), nil
}

// contentStream 总是回源；成功后只刷新元数据索引，正文不缓存。
func (s *Session) contentStream(ctx context.Context, doc *Document) (*ContentStream, error) {
	payload, err := s.fetcher.Fetch(ctx, RelationContent, doc.id)
	if err != nil {
		err = transportError(RelationContent, doc.id, err)
		s.observer.FetchFailed(RelationContent, ReasonOf(err))
		return nil, err
	}
	mimeType, _ := doc.ContentStreamMimeType()
	fileName, _ := doc.ContentStreamFileName()
	s.SetCachedContentStreamMetadata(doc.id, ContentMetadata{
		Length:   int64(len(payload)),
		MimeType: mimeType,
		FileName: fileName,
	})
	return NewContentStream(payload, mimeType), nil
}

// CachedObject 返回对象缓存中的条目。
func (s *Session) CachedObject(id string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	return obj, ok
}

// CachedChildren 返回缓存的子节点列表（原样，调用方不得修改）。
func (s *Session) CachedChildren(folderID string) ([]Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children, ok := s.children[folderID]
	return children, ok
}

// SetCachedChildren 整体替换 folderID 的子节点缓存。
func (s *Session) SetCachedChildren(folderID string, children []Object) {
	s.mu.Lock()
	s.children[folderID] = children
	s.mu.Unlock()
}

// CachedParents 返回缓存的父目录列表（原样，调用方不得修改）。
func (s *Session) CachedParents(objectID string) ([]*Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parents, ok := s.parents[objectID]
	return parents, ok
}

// SetCachedParents 整体替换 objectID 的父目录缓存。
func (s *Session) SetCachedParents(objectID string, parents []*Folder) {
	s.mu.Lock()
	s.parents[objectID] = parents
	s.mu.Unlock()
}

// CachedProperties 返回属性索引中的副本。
func (s *Session) CachedProperties(objectID string) (Properties, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props, ok := s.properties[objectID]
	if !ok {
		return nil, false
	}
	return props.Clone(), true
}

// SetCachedProperties 整体替换属性索引条目。
func (s *Session) SetCachedProperties(objectID string, props Properties) {
	s.mu.Lock()
	s.properties[objectID] = props.Clone()
	s.mu.Unlock()
}

// CachedContentStreamMetadata 返回正文元数据。
func (s *Session) CachedContentStreamMetadata(objectID string) (ContentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.contentMeta[objectID]
	return meta, ok
}

// SetCachedContentStreamMetadata 整体替换正文元数据条目。
func (s *Session) SetCachedContentStreamMetadata(objectID string, meta ContentMetadata) {
	s.mu.Lock()
	s.contentMeta[objectID] = meta
	s.mu.Unlock()
}

// RemoveObjectFromCache 在同一把写锁内从五个索引中删除 id。
func (s *Session) RemoveObjectFromCache(id ObjectID) {
	s.RemoveKeyFromCache(id.ID())
}

// RemoveKeyFromCache 与 RemoveObjectFromCache 相同，接受原始字符串键。
func (s *Session) RemoveKeyFromCache(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	delete(s.objects, key)
	delete(s.properties, key)
	delete(s.children, key)
	delete(s.parents, key)
	delete(s.contentMeta, key)
}

// ClearCache 清空全部索引并重置根目录槽位，下一次 RootFolder 会重新取数。
func (s *Session) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.objects = make(map[string]Object)
	s.children = make(map[string][]Object)
	s.parents = make(map[string][]*Folder)
	s.properties = make(map[string]Properties)
	s.contentMeta = make(map[string]ContentMetadata)
	s.root = nil
}

// Stats 返回各索引的条目数。
func (s *Session) Stats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CacheStats{
		Objects:         len(s.objects),
		Children:        len(s.children),
		Parents:         len(s.parents),
		Properties:      len(s.properties),
		ContentMetadata: len(s.contentMeta),
		RootLoaded:      s.root != nil,
	}
}

// logNavigationFailure 在宽松接口吞掉错误前记录一条 Warn 日志。
func (s *Session) logNavigationFailure(rel Relation, id string, err error) {
	fields := logging.SessionFields(s.repositoryID, string(rel), id)
	fields["reason"] = string(ReasonOf(err))
	s.logger.WithError(err).WithFields(fields).Warn("cmis_navigation_failed")
}

func flightKey(rel Relation, id string) string {
	return string(rel) + "\x00" + id
}

// do 以当前代数合并同键取数。取数在脱离调用方取消信号的 ctx 上运行，
// 某个调用方取消只影响它自己，其余等待者照常拿到结果。
func (s *Session) do(ctx context.Context, key string, rel Relation, id string, fn func(context.Context, uint64) (any, error)) (any, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key+"\x00"+strconv.FormatUint(gen, 10), func() (any, error) {
		return fn(flightCtx, gen)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, transportError(rel, id, ctx.Err())
	}
}

// commit 仅在期间没有发生淘汰时执行写入。
func (s *Session) commit(gen uint64, write func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		write()
	}
}
