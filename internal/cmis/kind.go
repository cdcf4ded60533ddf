package cmis

import "strings"

// FolderTypeMarker 出现在 objectTypeId 中即视为文件夹，远端类型可能是复合串，
// 例如 "F:custom:folder-sub,cmis:folder"，因此按子串判断。
const FolderTypeMarker = "cmis:folder"

// Kind 是远端类型空间的封闭标签。
type Kind string

const (
	KindUnknown  Kind = "unknown"
	KindDocument Kind = "document"
	KindFolder   Kind = "folder"
)

// Classify 在水合时对 objectTypeId 做一次判定。空类型返回 KindUnknown，
// 调用方会把它当作 Document 构建。
func Classify(typeID string) Kind {
	switch {
	case strings.Contains(typeID, FolderTypeMarker):
		return KindFolder
	case typeID == "":
		return KindUnknown
	default:
		return KindDocument
	}
}
