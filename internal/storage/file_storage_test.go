// internal/storage/file_storage_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	return fs
}

func TestSaveAndLoadTextFile(t *testing.T) {
	fs := newTestStorage(t)

	content := []byte("# 大纲\n## 第一章")
	if err := fs.SaveTextFile("prompts", "outline.txt", content); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := fs.LoadTextFile("prompts", "outline.txt")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if string(loaded) != string(content) {
		t.Errorf("内容不一致: %q", loaded)
	}
}

// TestSaveInvalidatesCache 保存后读取应返回最新内容而非缓存
func TestSaveInvalidatesCache(t *testing.T) {
	fs := newTestStorage(t)

	if err := fs.SaveTextFile("", "a.txt", []byte("v1")); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	// 第一次读取填充缓存
	if _, err := fs.LoadTextFile("", "a.txt"); err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	if err := fs.SaveTextFile("", "a.txt", []byte("v2")); err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	loaded, err := fs.LoadTextFile("", "a.txt")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if string(loaded) != "v2" {
		t.Errorf("缓存未失效，读到旧内容: %q", loaded)
	}
}

func TestFileExists(t *testing.T) {
	fs := newTestStorage(t)

	if fs.FileExists("template", "default.json") {
		t.Error("未创建的文件不应存在")
	}

	if err := fs.SaveTextFile("template", "default.json", []byte("{}")); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if !fs.FileExists("template", "default.json") {
		t.Error("已保存的文件应存在")
	}
}

func TestJSONFile(t *testing.T) {
	fs := newTestStorage(t)

	type theme struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	saved := theme{Name: "默认模板", Color: "#336699"}
	if err := fs.SaveJSONFile("template", "default.json", saved); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	var loaded theme
	if err := fs.LoadJSONFile("template", "default.json", &loaded); err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded != saved {
		t.Errorf("JSON内容不一致: %+v", loaded)
	}
}

// TestLoadMissingFile 不存在的文件返回错误
func TestLoadMissingFile(t *testing.T) {
	fs := newTestStorage(t)

	if _, err := fs.LoadTextFile("", "missing.txt"); err == nil {
		t.Error("读取不存在的文件应返回错误")
	}
}

// TestAtomicWriteNoTempLeftover 保存成功后不残留临时文件
func TestAtomicWriteNoTempLeftover(t *testing.T) {
	fs := newTestStorage(t)

	if err := fs.SaveTextFile("", "b.txt", []byte("data")); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	if _, err := os.Stat(filepath.Join(fs.BaseDir, "b.txt.tmp")); !os.IsNotExist(err) {
		t.Error("临时文件未清理")
	}
}
