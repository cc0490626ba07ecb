package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// WriteResult 写入结果
type WriteResult struct {
	StoredName string
	Path       string
	Size       int64
}

// DeleteResult 删除结果，文件本就不存在也算成功
type DeleteResult struct {
	Existed    bool
	FreedBytes int64
}

// FileInfo 物理文件状态
type FileInfo struct {
	Exists     bool
	Size       int64
	ModifiedAt time.Time
	Readable   bool
}

// Stats 存储树统计
type Stats struct {
	TotalFiles int64
	TotalSize  int64
	RootExists bool
}

// Store 本地磁盘存储，按日期分桶避免单目录过大
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage root path is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage root")
	}
	return &Store{root: root}, nil
}

// Root 存储根目录
func (s *Store) Root() string {
	return s.root
}

// Write 落盘并返回存储名与相对根目录的路径，存储名由账号、时间戳和随机 token 组成，天然防碰撞
// 后续的 Read、Stat、Delete 都接收这里返回的相对路径
func (s *Store) Write(content []byte, originalName string, accountID int64) (*WriteResult, error) {
	now := time.Now().UTC()

	ext := strings.ToLower(filepath.Ext(originalName))
	storedName := fmt.Sprintf("%d_%s_%s%s", accountID, now.Format("20060102_150405"), uuid.NewString(), ext)

	bucket := filepath.Join(now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(filepath.Join(s.root, bucket), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create bucket directory")
	}

	path := filepath.Join(bucket, storedName)
	full := filepath.Join(s.root, path)
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write file")
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, errors.Wrap(err, "written file not stat-able")
	}

	return &WriteResult{
		StoredName: storedName,
		Path:       path,
		Size:       info.Size(),
	}, nil
}

// Delete 幂等删除：目标不存在时视为成功，释放字节数为 0
func (s *Store) Delete(path string) (*DeleteResult, error) {
	full := filepath.Join(s.root, path)
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return &DeleteResult{Existed: false, FreedBytes: 0}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file before delete")
	}

	size := info.Size()
	if err := os.Remove(full); err != nil {
		return nil, errors.Wrap(err, "failed to delete file")
	}

	return &DeleteResult{Existed: true, FreedBytes: size}, nil
}

// Stat 查询物理文件信息
func (s *Store) Stat(path string) *FileInfo {
	full := filepath.Join(s.root, path)
	info, err := os.Stat(full)
	if err != nil {
		return &FileInfo{Exists: false}
	}

	readable := true
	if f, err := os.Open(full); err != nil {
		readable = false
	} else {
		_ = f.Close()
	}

	return &FileInfo{
		Exists:     true,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		Readable:   readable,
	}
}

// Read 读取文件全部内容
func (s *Store) Read(path string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.root, path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return content, nil
}

// Walk 遍历存储树下的所有普通文件，回调收到的路径同样相对根目录
func (s *Store) Walk(fn func(path string, size int64) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == ".gitkeep" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		return fn(rel, info.Size())
	})
}

// Stats 统计文件数和总大小
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	if _, err := os.Stat(s.root); err != nil {
		return stats, nil
	}
	stats.RootExists = true

	err := s.Walk(func(path string, size int64) error {
		stats.TotalFiles++
		stats.TotalSize += size
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk storage tree")
	}

	return stats, nil
}

// CompactEmptyDirs 自底向上清理空目录，返回删除的目录数
func (s *Store) CompactEmptyDirs() (int, error) {
	var dirs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != s.root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to walk storage tree")
	}

	removed := 0
	// 逆序先处理深层目录
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Writable 探测根目录是否可写，用于健康检查
func (s *Store) Writable() bool {
	probe := filepath.Join(s.root, ".probe-"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}
