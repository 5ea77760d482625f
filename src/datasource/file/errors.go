package file

import (
	"fmt"
	"strings"
)

// FileAccessError 数据文件不存在、无法读取或无法解析
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("数据文件 %s 读取失败: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// SchemaError 数据文件缺少必要的列
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("数据文件 %s 缺少列: %s", e.Path, strings.Join(e.Missing, ", "))
}
