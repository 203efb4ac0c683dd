package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"swingtrader/portfolio"
)

// FileStore 本地 JSON 文件挂单存储
type FileStore struct {
	path string
}

// NewFileStore 创建文件挂单存储
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save 覆盖保存全部挂单
func (s *FileStore) Save(ctx context.Context, orders []portfolio.Order) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建挂单目录失败: %w", err)
	}

	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化挂单失败: %w", err)
	}

	// 先写临时文件再改名，避免写一半的文件被读到
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入挂单失败: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("替换挂单文件失败: %w", err)
	}
	return nil
}

// Load 读取全部挂单，文件不存在视为无挂单
func (s *FileStore) Load(ctx context.Context) ([]portfolio.Order, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取挂单失败: %w", err)
	}

	var orders []portfolio.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("解析挂单失败: %w", err)
	}
	return orders, nil
}

// Clear 清空挂单
func (s *FileStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("清空挂单失败: %w", err)
	}
	return nil
}

// Close 关闭存储
func (s *FileStore) Close() error {
	return nil
}
