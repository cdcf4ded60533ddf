package cmis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

var errMissingObjectID = errors.New("properties missing cmis:objectId")

// decodeTree 解析 JSON 载荷，数字保留为 json.Number 以免毫秒时间戳丢精度。
func decodeTree(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// normalizeEntries 兼容三种响应形态：顶层 objects 列表、带 object 键的单对象、裸列表。
func normalizeEntries(tree any) []any {
	switch v := tree.(type) {
	case map[string]any:
		if objects, ok := v["objects"]; ok && objects != nil {
			list, _ := objects.([]any)
			return list
		}
		if obj, ok := v["object"]; ok && obj != nil {
			return []any{v}
		}
	case []any:
		return v
	}
	return nil
}

// entryProperties 取出单个条目的属性，条目可能被包在 object 键下。
func entryProperties(entry any) Properties {
	m, ok := entry.(map[string]any)
	if !ok {
		return Properties{}
	}
	if inner, ok := m["object"].(map[string]any); ok {
		m = inner
	}
	return parseProperties(m["properties"])
}

// parseProperties 将 {name: {value: ...}} 结构转换为 Properties。
func parseProperties(raw any) Properties {
	m, ok := raw.(map[string]any)
	if !ok {
		return Properties{}
	}
	props := make(Properties, len(m))
	for name, desc := range m {
		d, ok := desc.(map[string]any)
		if !ok {
			props[name] = Property{}
			continue
		}
		prop := Property{Value: d["value"]}
		prop.ID, _ = d["id"].(string)
		prop.DisplayName, _ = d["displayName"].(string)
		prop.Type, _ = d["type"].(string)
		prop.Cardinality, _ = d["cardinality"].(string)
		props[name] = prop
	}
	return props
}

// hasObjectID 对应"跳过 objectId 缺失或为空的条目"。
func hasObjectID(props Properties) bool {
	id, ok := props.String(PropObjectID)
	return ok && id != ""
}

// hydrate 根据类型标签构建 Folder 或 Document；非文件夹一律视为 Document。
func (s *Session) hydrate(props Properties) Object {
	typeID, _ := props.String(PropObjectTypeID)
	if Classify(typeID) == KindFolder {
		return newFolder(s, props)
	}
	return newDocument(s, props)
}

// fetchEntries 拉取 children/parents 列表并返回有效条目的属性。
func (s *Session) fetchEntries(ctx context.Context, rel Relation, id string) ([]Properties, error) {
	payload, err := s.fetcher.Fetch(ctx, rel, id)
	if err != nil {
		return nil, transportError(rel, id, err)
	}
	tree, err := decodeTree(payload)
	if err != nil {
		return nil, decodeError(rel, id, err)
	}
	entries := normalizeEntries(tree)
	result := make([]Properties, 0, len(entries))
	for _, entry := range entries {
		props := entryProperties(entry)
		if !hasObjectID(props) {
			continue
		}
		result = append(result, props)
	}
	return result, nil
}
