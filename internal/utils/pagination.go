// Package utils provides small helpers shared by the HTTP layer.
package utils

import "strconv"

// Page bounds. They keep (page-1)*size far from int overflow.
const (
	MaxPage     = 100000
	MaxPageSize = 1000
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page parses page and page_size query values. page is clamped to
// [1, MaxPage]; size falls back to def and is clamped to [1, max].
func Page(pageStr, sizeStr string, def, max int) (page, size int) {
	size = AtoiDefault(sizeStr, def)
	if size < 1 {
		size = 1
	}
	if max > 0 && size > max {
		size = max
	}
	return Clamp(AtoiDefault(pageStr, 1), size, def)
}

// Clamp bounds page to [1, MaxPage] and size to [1, MaxPageSize]. A
// non-positive size becomes def.
func Clamp(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = def
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}


// TotalPages returns the number of pages of size needed for total items.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
