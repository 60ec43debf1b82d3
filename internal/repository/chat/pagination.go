package chat

import "math"

// pageOffset 计算分页偏移量，page 从 1 开始
// page 非法或偏移量溢出时返回 false，调用方按空页处理
func pageOffset(page, pageSize int) (int, bool) {
	if page < 1 || pageSize < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}
