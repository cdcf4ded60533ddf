package cmis

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// 会话参数键，保持与上游 SessionFactory 相同的扁平 key 形式。
const (
	ParamBrowserURL   = "cmis.binding.browser.url"
	ParamRepositoryID = "cmis.session.repository.id"
	ParamUser         = "cmis.user"
	ParamPassword     = "cmis.password"
	ParamVerifySSL    = "cmis.binding.verify"
	ParamTimeout      = "cmis.binding.timeout"
	ParamProxy        = "cmis.binding.proxy"
)

// SessionParameters 是解析后的连接参数。只有 BrowserURL 与 RepositoryID 是必需的。
type SessionParameters struct {
	BrowserURL   string        `mapstructure:"cmis.binding.browser.url"`
	RepositoryID string        `mapstructure:"cmis.session.repository.id"`
	Username     string        `mapstructure:"cmis.user"`
	Password     string        `mapstructure:"cmis.password"`
	VerifySSL    bool          `mapstructure:"cmis.binding.verify"`
	Timeout      time.Duration `mapstructure:"cmis.binding.timeout"`
	Proxy        string        `mapstructure:"cmis.binding.proxy"`
}

// ParameterError 指出缺失或非法的会话参数。
type ParameterError struct {
	Parameter string
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Reason)
}

// FetcherFactory 根据会话参数构建传输层 Fetcher。
type FetcherFactory func(SessionParameters) (Fetcher, error)

// ParseSessionParameters 用 mapstructure 解码参数表，未提供 cmis.binding.verify 时默认校验证书。
func ParseSessionParameters(params map[string]any) (SessionParameters, error) {
	parsed := SessionParameters{VerifySSL: true}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &parsed,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return SessionParameters{}, err
	}
	if err := decoder.Decode(params); err != nil {
		return SessionParameters{}, fmt.Errorf("decode session parameters: %w", err)
	}

	parsed.BrowserURL = strings.TrimSpace(parsed.BrowserURL)
	parsed.RepositoryID = strings.TrimSpace(parsed.RepositoryID)
	if parsed.BrowserURL == "" {
		return SessionParameters{}, &ParameterError{Parameter: ParamBrowserURL, Reason: "required"}
	}
	if parsed.RepositoryID == "" {
		return SessionParameters{}, &ParameterError{Parameter: ParamRepositoryID, Reason: "required"}
	}
	if parsed.Timeout < 0 {
		return SessionParameters{}, &ParameterError{Parameter: ParamTimeout, Reason: "must not be negative"}
	}
	return parsed, nil
}

// NewSessionFromParameters 校验参数、构建 Fetcher 并返回新的 Session。必需参数缺失时立即失败。
func NewSessionFromParameters(params map[string]any, build FetcherFactory, opts SessionOptions) (*Session, error) {
	if build == nil {
		return nil, fmt.Errorf("fetcher factory is required")
	}
	parsed, err := ParseSessionParameters(params)
	if err != nil {
		return nil, err
	}
	fetcher, err := build(parsed)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}
	if opts.RepositoryID == "" {
		opts.RepositoryID = parsed.RepositoryID
	}
	return NewSession(fetcher, opts)
}
