package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// configFixture 返回 internal/config/testdata 下的配置样例路径，样例不存在时直接失败。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("无法定位测试文件")
	}
	path := filepath.Join(filepath.Dir(file), "internal", "config", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("配置样例 %s 不存在: %v", name, err)
	}
	return path
}

// repositoryBlock 生成一个最小可用的 [[Repository]] 段落。
func repositoryBlock(name, browserURL string) string {
	return fmt.Sprintf(`
[[Repository]]
Name = %q
BrowserURL = %q
RepositoryID = "-default-"
`, name, browserURL)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
