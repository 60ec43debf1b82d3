package repository

import "errors"

// ErrNotFound 记录不存在，或不属于请求方
// 两种情况对调用方不可区分，避免泄露其他用户的数据
var ErrNotFound = errors.New("record not found")
