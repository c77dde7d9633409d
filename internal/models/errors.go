package models

import "errors"

var (
	// ErrDuplicateRejected 冷却窗口内的重复扫码，未产生任何修改
	ErrDuplicateRejected = errors.New("duplicate scan rejected")
	// ErrNotFound 购物车中不存在该商品（或用户没有购物车）
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument 参数不合法（缺少必填字段、数量为负等）
	ErrInvalidArgument = errors.New("invalid argument")
)
