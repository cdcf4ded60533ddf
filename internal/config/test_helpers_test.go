package config

import (
	"os"
	"path/filepath"
	"testing"
)

const alfrescoRepository = `
[[Repository]]
Name = "alfresco"
BrowserURL = "https://cmis.example.com/browser"
RepositoryID = "-default-"
`

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

// writeTempConfig 写入临时配置；repositories 为空时追加 alfresco 仓库段落。
func writeTempConfig(t *testing.T, content string, repositories ...string) string {
	t.Helper()
	if len(repositories) == 0 {
		repositories = []string{alfrescoRepository}
	}
	for _, repo := range repositories {
		content += repo
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}
