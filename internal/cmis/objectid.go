package cmis

// ObjectID 包装远端仓库下发的对象标识。值类型、不可变，按字符串比较，
// 可直接作为 map 键使用。空字符串同样合法，标识空间完全由远端定义。
type ObjectID struct {
	id string
}

// NewObjectID 构造 ObjectID，不做任何校验。
func NewObjectID(id string) ObjectID {
	return ObjectID{id: id}
}

// ID 返回原始标识字符串。
func (o ObjectID) ID() string {
	return o.id
}

func (o ObjectID) String() string {
	return o.id
}
