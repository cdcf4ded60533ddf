package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/cmis-hub/internal/config"
	"github.com/any-hub/cmis-hub/internal/logging"
	"github.com/any-hub/cmis-hub/internal/metrics"
	"github.com/any-hub/cmis-hub/internal/server"
	"github.com/any-hub/cmis-hub/internal/server/routes"
	"github.com/any-hub/cmis-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["repositories"] = len(cfg.Repositories)
		fields["credentials"] = config.CredentialModes(cfg.Repositories)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建 HTTP 服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["repositories"] = len(cfg.Repositories)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["credentials"] = config.CredentialModes(cfg.Repositories)
	fields["metrics"] = cfg.Global.EnableMetrics
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("cmis-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 CMIS_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CMIS_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// buildApp 遵循“配置 → 指标 → 仓库注册表（每仓库一个 Session）→ Fiber 路由”的顺序组装服务。
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, error) {
	var (
		recorder       *metrics.Recorder
		metricsHandler http.Handler
		registryOpts   = server.RegistryOptions{Logger: logger}
		appOpts        = server.AppOptions{Logger: logger}
	)
	if cfg.Global.EnableMetrics {
		recorder = metrics.NewRecorder()
		metricsHandler = recorder.Handler()
		registryOpts.Observer = recorder.ForRepository
		appOpts.Recorder = recorder
	}

	registry, err := server.NewRepositoryRegistry(cfg, registryOpts)
	if err != nil {
		return nil, fmt.Errorf("构建仓库注册表失败: %w", err)
	}
	if recorder != nil {
		recorder.TrackStats(registry.Stats)
	}

	appOpts.Registry = registry
	app, err := server.NewApp(appOpts)
	if err != nil {
		return nil, err
	}
	routes.RegisterBrowseRoutes(app, registry, logger)
	routes.RegisterCacheRoutes(app, registry, logger)
	routes.RegisterDiagnosticsRoutes(app, registry, metricsHandler)
	return app, nil
}

func startHTTPServer(app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
