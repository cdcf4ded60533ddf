package cmis

import "context"

// Folder 是仓库中的目录节点。
type Folder struct {
	object
}

func newFolder(session *Session, props Properties) *Folder {
	return &Folder{object: newObject(session, KindFolder, props)}
}

// Children 返回子节点（Document 或 Folder）。缓存命中时原样返回；
// 失败时返回空列表，调用方无法据此区分"没有子节点"与"取数失败"。
func (f *Folder) Children(ctx context.Context) []Object {
	children, err := f.LoadChildren(ctx)
	if err != nil {
		f.session.logNavigationFailure(RelationChildren, f.id, err)
		return []Object{}
	}
	return children
}

// LoadChildren 与 Children 相同，但失败时返回 *FetchError。
func (f *Folder) LoadChildren(ctx context.Context) ([]Object, error) {
	return f.session.loadChildren(ctx, f.id)
}

// ParentID 直接读取 cmis:parentId 属性，不触发导航。
func (f *Folder) ParentID() (string, bool) {
	return f.props.String(PropParentID)
}

// Path 读取 cmis:path 属性。
func (f *Folder) Path() (string, bool) {
	return f.props.String(PropPath)
}
