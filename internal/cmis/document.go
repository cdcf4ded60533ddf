package cmis

import "context"

// Document 是仓库中的文档节点，额外提供正文元数据、父目录导航与正文读取。
type Document struct {
	object
}

func newDocument(session *Session, props Properties) *Document {
	return &Document{object: newObject(session, KindDocument, props)}
}

// ContentStreamLength 返回正文字节数属性。
func (d *Document) ContentStreamLength() (int64, bool) {
	return d.props.Int(PropContentStreamLength)
}

// ContentStreamMimeType 返回正文 MIME 类型属性。
func (d *Document) ContentStreamMimeType() (string, bool) {
	return d.props.String(PropContentStreamMimeType)
}

// ContentStreamFileName 返回正文文件名属性。
func (d *Document) ContentStreamFileName() (string, bool) {
	return d.props.String(PropContentStreamFileName)
}

// VersionSeriesID 返回版本序列 id。
func (d *Document) VersionSeriesID() (string, bool) {
	return d.props.String(PropVersionSeriesID)
}

// Parents 返回父目录列表。命中缓存时原样返回（包括此前缓存的空列表）；
// 取数或解析失败时返回空列表，此时结果不代表远端真实状态。
func (d *Document) Parents(ctx context.Context) []*Folder {
	parents, err := d.LoadParents(ctx)
	if err != nil {
		d.session.logNavigationFailure(RelationParents, d.id, err)
		return []*Folder{}
	}
	return parents
}

// LoadParents 与 Parents 相同，但失败时返回 *FetchError，且不会写入缓存。
func (d *Document) LoadParents(ctx context.Context) ([]*Folder, error) {
	return d.session.loadParents(ctx, d.id)
}

// FirstParentID 通过导航取第一个父目录的 id。它走 Parents 的缓存与失败策略，
// 与 Folder.ParentID 读取存储属性的语义不同。
func (d *Document) FirstParentID(ctx context.Context) (string, bool) {
	parents := d.Parents(ctx)
	if len(parents) == 0 {
		return "", false
	}
	return parents[0].ID(), true
}

// ContentStream 每次都向远端读取正文，不查缓存也不缓存正文；任何传输错误都直接返回。
func (d *Document) ContentStream(ctx context.Context) (*ContentStream, error) {
	return d.session.contentStream(ctx, d)
}
