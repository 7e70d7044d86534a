package util

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Calculate normalizes a 1-based page/size pair into offset and limit.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size
}
