package config

import "errors"

// 预定义错误常量.
var (
	// ErrFileNotFound 配置文件不存在.
	ErrFileNotFound = errors.New("配置文件不存在")

	// ErrReadConfig 读取配置失败.
	ErrReadConfig = errors.New("读取配置失败")

	// ErrUnmarshal 解析配置失败.
	ErrUnmarshal = errors.New("解析配置失败")

	// ErrValidation 配置验证失败.
	ErrValidation = errors.New("配置验证失败")

	// ErrWatch 监听配置文件失败.
	ErrWatch = errors.New("监听配置文件失败")
)
