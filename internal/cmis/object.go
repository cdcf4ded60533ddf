package cmis

import "time"

// Object 是 Document 与 Folder 共享的只读能力。标识、名称、属性以及日期/创建者
// 访问器只在 object 中实现一次。
type Object interface {
	ID() string
	Name() string
	Kind() Kind
	Properties() Properties
	PropertyValue(name string) (any, bool)
	CreationDate() (time.Time, bool)
	LastModificationDate() (time.Time, bool)
	CreatedBy() (string, bool)
	LastModifiedBy() (string, bool)
}

// object 在一次水合中完整构造，之后不再修改。session 用于导航取数。
type object struct {
	session *Session
	id      string
	name    string
	kind    Kind
	props   Properties
}

func newObject(session *Session, kind Kind, props Properties) object {
	if props == nil {
		props = Properties{}
	}
	id, _ := props.String(PropObjectID)
	name, _ := props.String(PropName)
	return object{
		session: session,
		id:      id,
		name:    name,
		kind:    kind,
		props:   props,
	}
}

func (o *object) ID() string {
	return o.id
}

func (o *object) Name() string {
	return o.name
}

func (o *object) Kind() Kind {
	return o.kind
}

// Properties 返回属性副本，调用方的修改不会回写到缓存。
func (o *object) Properties() Properties {
	return o.props.Clone()
}

func (o *object) PropertyValue(name string) (any, bool) {
	return o.props.Value(name)
}

func (o *object) CreationDate() (time.Time, bool) {
	return o.props.Time(PropCreationDate)
}

func (o *object) LastModificationDate() (time.Time, bool) {
	return o.props.Time(PropLastModificationDate)
}

func (o *object) CreatedBy() (string, bool) {
	return o.props.String(PropCreatedBy)
}

func (o *object) LastModifiedBy() (string, bool) {
	return o.props.String(PropLastModifiedBy)
}
