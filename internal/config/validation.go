package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别的日志级别: %s", g.LogLevel))
		}
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if len(c.Repositories) == 0 {
		return errors.New("至少需要配置一个 Repository")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if repo.Name == "" {
			return newFieldError("Repository[].Name", "不能为空")
		}
		if strings.ContainsAny(repo.Name, "/ ") {
			return newFieldError(repositoryField(repo.Name, "Name"), "不允许包含空格或 /")
		}
		if _, exists := seenNames[repo.Name]; exists {
			return newFieldError(repositoryField(repo.Name, "Name"), "重复")
		}
		seenNames[repo.Name] = struct{}{}

		if err := validateEndpoint(repo.BrowserURL); err != nil {
			return fmt.Errorf("%s: %w", repositoryField(repo.Name, "BrowserURL"), err)
		}
		if strings.HasSuffix(repo.BrowserURL, "/root") {
			return newFieldError(repositoryField(repo.Name, "BrowserURL"), "不应包含 /root 后缀，根目录路径由客户端拼接")
		}
		if repo.RepositoryID == "" {
			return newFieldError(repositoryField(repo.Name, "RepositoryID"), "不能为空")
		}
		if (repo.Username == "") != (repo.Password == "") {
			return newFieldError(repositoryField(repo.Name, "Username/Password"), "必须同时提供或同时留空")
		}
		if repo.Proxy != "" {
			if err := validateEndpoint(repo.Proxy); err != nil {
				return fmt.Errorf("%s: %w", repositoryField(repo.Name, "Proxy"), err)
			}
		}
	}

	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("缺少地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
