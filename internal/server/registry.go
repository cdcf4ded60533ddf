package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/cmis-hub/internal/browser"
	"github.com/any-hub/cmis-hub/internal/cmis"
	"github.com/any-hub/cmis-hub/internal/config"
)

// RepositoryRoute 将仓库配置与其独占的 Session 聚合在一起，供路由层直接复用。
type RepositoryRoute struct {
	// Config 是 config.toml 中声明的仓库字段副本，避免外部修改。
	Config config.RepositoryConfig
	// Timeout 是对当前仓库生效的上游超时，未覆盖时等于全局值。
	Timeout time.Duration
	// Session 持有该仓库的全部缓存，仓库之间互不共享。
	Session *cmis.Session
}

// RegistryOptions 控制 Session 的构建方式，测试可注入自定义 FetcherFactory。
type RegistryOptions struct {
	Logger         *logrus.Logger
	FetcherFactory cmis.FetcherFactory
	// Observer 按仓库名返回 cmis.Observer，为空时不采集指标。
	Observer func(name string) cmis.Observer
}

// RepositoryRegistry 提供仓库名到 RepositoryRoute 的查询能力。
type RepositoryRegistry struct {
	routes  map[string]*RepositoryRoute
	ordered []*RepositoryRoute
}

// NewRepositoryRegistry 根据配置为每个仓库构建 Session。调用方应在启动阶段创建一次并复用。
func NewRepositoryRegistry(cfg *config.Config, opts RegistryOptions) (*RepositoryRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	factory := opts.FetcherFactory
	if factory == nil {
		factory = browser.FetcherFactory(logger)
	}

	registry := &RepositoryRegistry{
		routes: make(map[string]*RepositoryRoute, len(cfg.Repositories)),
	}
	for _, repo := range cfg.Repositories {
		if _, exists := registry.routes[repo.Name]; exists {
			return nil, fmt.Errorf("duplicate repository name detected for %s", repo.Name)
		}

		sessionOpts := cmis.SessionOptions{Logger: logger}
		if opts.Observer != nil {
			sessionOpts.Observer = opts.Observer(repo.Name)
		}
		session, err := cmis.NewSessionFromParameters(sessionParameters(cfg, repo), factory, sessionOpts)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
		}

		route := &RepositoryRoute{
			Config:  repo,
			Timeout: cfg.EffectiveTimeout(repo),
			Session: session,
		}
		registry.routes[repo.Name] = route
		registry.ordered = append(registry.ordered, route)
	}
	return registry, nil
}

// Lookup 根据仓库名查找 RepositoryRoute。
func (r *RepositoryRegistry) Lookup(name string) (*RepositoryRoute, bool) {
	if r == nil || name == "" {
		return nil, false
	}
	route, ok := r.routes[name]
	return route, ok
}

// List 返回按配置顺序排列的 RepositoryRoute，用于 /-/repositories 输出。
func (r *RepositoryRegistry) List() []*RepositoryRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	return append([]*RepositoryRoute(nil), r.ordered...)
}

// Stats 返回每个仓库的缓存条目数快照，供 metrics 抓取。
func (r *RepositoryRegistry) Stats() map[string]cmis.CacheStats {
	if r == nil {
		return nil
	}
	result := make(map[string]cmis.CacheStats, len(r.ordered))
	for _, route := range r.ordered {
		result[route.Config.Name] = route.Session.Stats()
	}
	return result
}

// sessionParameters 将仓库配置转换为 cmis 会话参数表。
func sessionParameters(cfg *config.Config, repo config.RepositoryConfig) map[string]any {
	params := map[string]any{
		cmis.ParamBrowserURL:   repo.BrowserURL,
		cmis.ParamRepositoryID: repo.RepositoryID,
		cmis.ParamVerifySSL:    repo.VerifiesSSL(),
		cmis.ParamTimeout:      cfg.EffectiveTimeout(repo),
	}
	if repo.HasCredentials() {
		params[cmis.ParamUser] = repo.Username
		params[cmis.ParamPassword] = repo.Password
	}
	if repo.Proxy != "" {
		params[cmis.ParamProxy] = repo.Proxy
	}
	return params
}
