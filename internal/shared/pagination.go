package shared

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize applies when no limit is requested.
const DefaultPageSize = 50

// MaxPageSize caps any requested limit.
const MaxPageSize = 500

// NewPage clamps limit and offset into sane bounds.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
