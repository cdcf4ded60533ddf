package cmis

import "context"

// Relation 描述向远端索取的数据种类。
type Relation string

const (
	RelationObject   Relation = "object"
	RelationChildren Relation = "children"
	RelationParents  Relation = "parents"
	RelationContent  Relation = "content"
)

// Fetcher 是核心层唯一依赖的外部能力：按关系与对象 id 取回原始载荷。
// object/children/parents 返回 JSON 文本，content 返回原始字节。
// id 为空且关系为 object 时表示仓库根目录。超时与重试都属于实现方。
type Fetcher interface {
	Fetch(ctx context.Context, rel Relation, id string) ([]byte, error)
}

// FetcherFunc 将普通函数适配为 Fetcher，便于测试注入。
type FetcherFunc func(ctx context.Context, rel Relation, id string) ([]byte, error)

// Fetch 使 FetcherFunc 满足 Fetcher。
func (f FetcherFunc) Fetch(ctx context.Context, rel Relation, id string) ([]byte, error) {
	return f(ctx, rel, id)
}
