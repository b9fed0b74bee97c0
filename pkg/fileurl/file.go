package fileurl

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// IsDir determines if the given path is a directory
// IsDir 判断所给路径是否为文件夹
func IsDir(path string) bool {
	s, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 所在的目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// IsAbsPath 判断是否为绝对路径
func IsAbsPath(path string) bool {
	if runtime.GOOS == "windows" && filepath.VolumeName(path) != "" {
		return true
	}
	return filepath.IsAbs(path)
}

// ResolvePath 将相对路径解析到 root 下，root 为空时使用当前工作目录
func ResolvePath(path string, root string) string {
	if path == "" || IsAbsPath(path) {
		return path
	}
	if root == "" {
		root, _ = os.Getwd()
	}
	return filepath.Join(root, strings.TrimPrefix(path, "./"))
}

// WriteFileAtomic writes data to a sibling temp file and renames it over dst
// WriteFileAtomic 先写临时文件再重命名，进程中途退出不会留下半截文件
func WriteFileAtomic(dst string, data []byte, perm os.FileMode) error {
	if err := CreatePath(dst, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
