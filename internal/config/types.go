package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有仓库共享同一份参数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	EnableMetrics   bool     `mapstructure:"EnableMetrics"`
}

// RepositoryConfig 描述一个 CMIS 仓库的连接参数，每个仓库对应独立的 Session 与缓存。
type RepositoryConfig struct {
	Name         string   `mapstructure:"Name"`
	BrowserURL   string   `mapstructure:"BrowserURL"`
	RepositoryID string   `mapstructure:"RepositoryID"`
	Username     string   `mapstructure:"Username"`
	Password     string   `mapstructure:"Password"`
	VerifySSL    *bool    `mapstructure:"VerifySSL"`
	Proxy        string   `mapstructure:"Proxy"`
	Timeout      Duration `mapstructure:"Timeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global       GlobalConfig       `mapstructure:",squash"`
	Repositories []RepositoryConfig `mapstructure:"Repository"`
}

// HasCredentials 表示当前仓库是否配置了完整的 Basic 凭证。
func (r RepositoryConfig) HasCredentials() bool {
	return r.Username != "" && r.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (r RepositoryConfig) AuthMode() string {
	if r.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}

// VerifiesSSL 未配置时默认校验证书。
func (r RepositoryConfig) VerifiesSSL() bool {
	return r.VerifySSL == nil || *r.VerifySSL
}

// CredentialModes 返回所有仓库的鉴权模式摘要，例如 alfresco:credentialed。
func CredentialModes(repos []RepositoryConfig) []string {
	if len(repos) == 0 {
		return nil
	}
	result := make([]string, len(repos))
	for i, repo := range repos {
		result[i] = fmt.Sprintf("%s:%s", repo.Name, repo.AuthMode())
	}
	return result
}

// EffectiveTimeout 返回仓库生效的上游超时，未覆盖时回退至全局值。
func (c *Config) EffectiveTimeout(r RepositoryConfig) time.Duration {
	if r.Timeout.DurationValue() > 0 {
		return r.Timeout.DurationValue()
	}
	return c.Global.UpstreamTimeout.DurationValue()
}
