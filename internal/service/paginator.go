package service

// Page is the slice of an ordered result set selected by a page number.
type Page struct {
	Number     int
	Size       int
	Offset     int
	TotalCount int
	TotalPages int
	NextPage   int
	PrevPage   int
}

type Paginator struct {
	defaultSize int
	maxSize     int
}

func NewPaginator(defaultSize, maxSize int) Paginator {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return Paginator{defaultSize: defaultSize, maxSize: maxSize}
}

// Normalize clamps page to >= 1 and size into [1, maxSize], falling back to the
// default size for non-positive values.
func (p Paginator) Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = p.defaultSize
	}
	if size > p.maxSize {
		size = p.maxSize
	}
	return page, size
}

// Paginate computes page metadata. A page past the last one keeps its number and gets
// Offset == TotalCount, so the caller returns an empty slice for it rather than an error.
func (p Paginator) Paginate(page, size, total int) Page {
	page, size = p.Normalize(page, size)
	if total < 0 {
		total = 0
	}

	totalPages := (total + size - 1) / size

	var nextPage, prevPage int
	if page < totalPages {
		nextPage = page + 1
	}
	if page > 1 {
		prevPage = page - 1
		if prevPage > totalPages && totalPages > 0 {
			prevPage = totalPages
		}
	}

	// page is bounded by totalPages here, so the product cannot overflow.
	offset := total
	if page <= totalPages {
		offset = (page - 1) * size
	}

	return Page{
		Number:     page,
		Size:       size,
		Offset:     offset,
		TotalCount: total,
		TotalPages: totalPages,
		NextPage:   nextPage,
		PrevPage:   prevPage,
	}
}
