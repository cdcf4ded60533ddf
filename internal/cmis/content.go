package cmis

import (
	"bytes"
	"io"
)

// ContentStream 是一次性读取的文档正文，构造后不可修改。正文永远不进入缓存。
type ContentStream struct {
	data     []byte
	mimeType string
}

// NewContentStream 复制 data，调用方之后对原切片的修改不会影响 ContentStream。
func NewContentStream(data []byte, mimeType string) *ContentStream {
	return &ContentStream{
		data:     append([]byte(nil), data...),
		mimeType: mimeType,
	}
}

// Bytes 返回正文副本。
func (c *ContentStream) Bytes() []byte {
	return append([]byte(nil), c.data...)
}

// Len 返回正文字节数。
func (c *ContentStream) Len() int {
	return len(c.data)
}

// MimeType 返回文档声明的 MIME 类型，未知时为空串。
func (c *ContentStream) MimeType() string {
	return c.mimeType
}

// Reader 返回只读的 io.Reader。
func (c *ContentStream) Reader() io.Reader {
	return bytes.NewReader(c.data)
}

func (c *ContentStream) String() string {
	return string(c.data)
}

// ContentMetadata 是 content-stream 元数据索引中保存的条目，不含正文。
type ContentMetadata struct {
	Length   int64  `json:"length"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
}
