// Package pagination turns page requests into message-number windows.
//
// Mail stores number messages 1..N oldest first, while listings are
// presented newest first. A Window maps a newest-first page onto the
// store's oldest-first numbering so callers can fetch exactly the
// messages that belong on the page.
package pagination

const (
	// DefaultPage is the page number used when none is given.
	DefaultPage = 1
	// DefaultPerPage is the page size used when none is given.
	DefaultPerPage = 20
)

// Params is a normalized page request.
type Params struct {
	Page    int // 1-based
	PerPage int
}

// Option configures Normalize.
type Option func(*Params)

// WithDefaultPerPage overrides DefaultPerPage. Non-positive values are
// ignored.
func WithDefaultPerPage(perPage int) Option {
	return func(p *Params) {
		if perPage > 0 {
			p.PerPage = perPage
		}
	}
}

// Normalize clamps a raw page request: page < 1 becomes 1 and perPage < 1
// becomes the default. Larger page sizes are kept as asked.
func Normalize(page, perPage int, opts ...Option) Params {
	p := Params{Page: DefaultPage, PerPage: DefaultPerPage}
	for _, opt := range opts {
		opt(&p)
	}

	if page > 0 {
		p.Page = page
	}
	if perPage > 0 {
		p.PerPage = perPage
	}
	return p
}

// TotalPages returns ceil(total/perPage), or 0 for an empty store.
func TotalPages(total uint32, perPage int) int {
	if total == 0 || perPage < 1 {
		return 0
	}
	return int((uint64(total) + uint64(perPage) - 1) / uint64(perPage))
}

// Window is an inclusive range of oldest-first message numbers.
// Iterate from Last down to First to visit newest first.
type Window struct {
	First uint32
	Last  uint32
}

// Len returns the number of messages in the window.
func (w Window) Len() int {
	if w.Last < w.First {
		return 0
	}
	return int(w.Last-w.First) + 1
}

// Descending returns the window's message numbers newest first.
func (w Window) Descending() []uint32 {
	nums := make([]uint32, 0, w.Len())
	for n := w.Last; n >= w.First && n > 0; n-- {
		nums = append(nums, n)
	}
	return nums
}

// Reverse computes the window for a newest-first page over total
// messages. The forward window is [start, end] = [(p-1)k+1,
// min((p-1)k+k, N)], translated to store numbering as
// [N-end+1, N-start+1]. ok is false when the page lies past the end.
func Reverse(total uint32, p Params) (Window, bool) {
	if total == 0 || p.Page < 1 || p.PerPage < 1 {
		return Window{}, false
	}

	start := uint64(p.Page-1)*uint64(p.PerPage) + 1
	if start > uint64(total) {
		return Window{}, false
	}
	end := start + uint64(p.PerPage) - 1
	if end > uint64(total) {
		end = uint64(total)
	}

	return Window{
		First: uint32(uint64(total) - end + 1),
		Last:  uint32(uint64(total) - start + 1),
	}, true
}

// HasNext reports whether pages exist after p.
func HasNext(total uint32, p Params) bool {
	return p.Page < TotalPages(total, p.PerPage)
}
