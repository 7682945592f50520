// Package db 数据库迁移脚本
package db

import "embed"

// Migrations 按文件名顺序执行的 *.sql
//
//go:embed *.sql
var Migrations embed.FS
