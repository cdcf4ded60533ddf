package cmis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 常用的 CMIS 属性名，全部位于 properties.<name>.value 下。
const (
	PropObjectID              = "cmis:objectId"
	PropName                  = "cmis:name"
	PropObjectTypeID          = "cmis:objectTypeId"
	PropBaseTypeID            = "cmis:baseTypeId"
	PropCreationDate          = "cmis:creationDate"
	PropLastModificationDate  = "cmis:lastModificationDate"
	PropCreatedBy             = "cmis:createdBy"
	PropLastModifiedBy        = "cmis:lastModifiedBy"
	PropContentStreamLength   = "cmis:contentStreamLength"
	PropContentStreamMimeType = "cmis:contentStreamMimeType"
	PropContentStreamFileName = "cmis:contentStreamFileName"
	PropVersionSeriesID       = "cmis:versionSeriesId"
	PropParentID              = "cmis:parentId"
	PropPath                  = "cmis:path"
)

// Property 是远端返回的通用属性描述，只有 Value 是必需的。
type Property struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type,omitempty"`
	Cardinality string `json:"cardinality,omitempty"`
	Value       any    `json:"value"`
}

// Properties 是属性名到描述的映射。水合时整体替换，不做增量合并。
type Properties map[string]Property

// Clone 深拷贝属性表，多值属性的切片与嵌套结构不与原表共享。
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for name, prop := range p {
		prop.Value = cloneValue(prop.Value)
		out[name] = prop
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	}
	return v
}

// Value 返回属性的 value 字段；键不存在或值为 null 时返回 false。
func (p Properties) Value(name string) (any, bool) {
	prop, ok := p[name]
	if !ok || prop.Value == nil {
		return nil, false
	}
	return prop.Value, true
}

// String 仅在值本身是字符串时返回，不做类型转换。
func (p Properties) String(name string) (string, bool) {
	raw, ok := p.Value(name)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Int 仅接受数值类型（json.Number、整型、无小数部分的浮点数），不从字符串解析。
func (p Properties) Int(name string) (int64, bool) {
	raw, ok := p.Value(name)
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
		return 0, false
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	default:
		return 0, false
	}
}

// Time 解析时间戳属性。数值按毫秒处理并向零截断到整秒；其它字符串交给
// dateparse 做自由格式解析。空值、0、"0"、false 均视为缺失。
func (p Properties) Time(name string) (time.Time, bool) {
	raw, ok := p.Value(name)
	if !ok || isFalsy(raw) {
		return time.Time{}, false
	}
	if ms, ok := numericMillis(raw); ok {
		return time.Unix(ms, 0).UTC(), true
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(parsed.Unix(), 0).UTC(), true
}

// numericMillis 返回毫秒值对应的整秒数（截断而非四舍五入）。
func numericMillis(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i / 1000, true
		}
		if f, err := v.Float64(); err == nil {
			return truncSeconds(f), true
		}
	case float64:
		return truncSeconds(v), true
	case float32:
		return truncSeconds(float64(v)), true
	case int:
		return int64(v) / 1000, true
	case int64:
		return v / 1000, true
	case int32:
		return int64(v) / 1000, true
	case string:
		trimmed := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i / 1000, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return truncSeconds(f), true
		}
	}
	return 0, false
}

func truncSeconds(ms float64) int64 {
	return int64(math.Trunc(ms / 1000))
}

func isFalsy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == "" || v == "0"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case int32:
		return v == 0
	}
	return false
}
