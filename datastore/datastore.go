// Package datastore provides shared helpers for the storage layer.
package datastore

type ListOptions struct {
	Limit  int
	Offset int
}

const DefaultLimit = 1000

// ParseListOptions normalizes raw limit/offset query values. A zero limit
// means the default page size, a negative limit means everything.
func ParseListOptions(limit, offset int) ListOptions {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		limit = -1
		offset = 0
	}
	if offset < 0 {
		offset = 0
	}
	return ListOptions{Limit: limit, Offset: offset}
}
