package cmis

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示远端不存在该对象，Fetcher 实现应返回（或包装）此错误。
var ErrNotFound = errors.New("cmis object not found")

// ErrNotFolder 表示按 id 取到的对象不是文件夹。
var ErrNotFolder = errors.New("cmis object is not a folder")

// ErrNotDocument 表示按 id 取到的对象不是文档。
var ErrNotDocument = errors.New("cmis object is not a document")

// Reason 标记一次取数失败的原因，供严格接口的调用方区分。
type Reason string

const (
	ReasonTransport Reason = "transport"
	ReasonDecode    Reason = "decode"
	ReasonNotFound  Reason = "not_found"
)

// FetchError 记录失败的关系、对象以及原因。导航类的宽松接口会把它转换为空结果，
// Load* 系列接口则原样返回。
type FetchError struct {
	Relation Relation
	ObjectID string
	Reason   Reason
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s %q: %s", e.Relation, e.ObjectID, e.Reason)
	}
	return fmt.Sprintf("fetch %s %q: %s: %v", e.Relation, e.ObjectID, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrNotFound) 对 ReasonNotFound 成立，即使底层错误未包装哨兵值。
func (e *FetchError) Is(target error) bool {
	return target == ErrNotFound && e.Reason == ReasonNotFound
}

// ReasonOf 提取错误中的 Reason，无法识别时归为 transport。
func ReasonOf(err error) Reason {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Reason
	}
	if errors.Is(err, ErrNotFound) {
		return ReasonNotFound
	}
	return ReasonTransport
}

func transportError(rel Relation, id string, err error) error {
	reason := ReasonTransport
	if errors.Is(err, ErrNotFound) {
		reason = ReasonNotFound
	}
	return &FetchError{Relation: rel, ObjectID: id, Reason: reason, Err: err}
}

func decodeError(rel Relation, id string, err error) error {
	return &FetchError{Relation: rel, ObjectID: id, Reason: ReasonDecode, Err: err}
}
