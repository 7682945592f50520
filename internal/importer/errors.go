package importer

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat 不支持的导入格式
var ErrUnsupportedFormat = errors.New("unsupported file type")

// ParseError 原始数据无法解析（JSON 格式错误、CSV 结构不可读等）
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError 严格模式下的字段校验失败
type ValidationError struct {
	Index  int    // 记录序号（从 0 开始）
	Field  string // 规范字段名
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: field %q %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
