package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/finmail/internal/pagination"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		page    int
		perPage int
		opts    []pagination.Option
		want    pagination.Params
	}{
		{name: "defaults", want: pagination.Params{Page: 1, PerPage: 20}},
		{name: "explicit", page: 3, perPage: 7, want: pagination.Params{Page: 3, PerPage: 7}},
		{name: "negative page", page: -2, perPage: 5, want: pagination.Params{Page: 1, PerPage: 5}},
		{name: "large page size kept", page: 1, perPage: 500, want: pagination.Params{Page: 1, PerPage: 500}},
		{
			name: "default per page option",
			opts: []pagination.Option{pagination.WithDefaultPerPage(10)},
			want: pagination.Params{Page: 1, PerPage: 10},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pagination.Normalize(tc.page, tc.perPage, tc.opts...))
		})
	}
}

func TestReverseExample(t *testing.T) {
	// 25 messages, 10 per page: page 1 holds 25..16, page 3 holds 5..1.
	w, ok := pagination.Reverse(25, pagination.Params{Page: 1, PerPage: 10})
	require.True(t, ok)
	assert.Equal(t, pagination.Window{First: 16, Last: 25}, w)

	w, ok = pagination.Reverse(25, pagination.Params{Page: 3, PerPage: 10})
	require.True(t, ok)
	assert.Equal(t, []uint32{5, 4, 3, 2, 1}, w.Descending())

	_, ok = pagination.Reverse(25, pagination.Params{Page: 4, PerPage: 10})
	assert.False(t, ok)
}

func TestReverseLargePage(t *testing.T) {
	p := pagination.Normalize(1, 150)
	assert.Equal(t, 2, pagination.TotalPages(300, p.PerPage))

	w, ok := pagination.Reverse(300, p)
	require.True(t, ok)
	assert.Equal(t, pagination.Window{First: 151, Last: 300}, w)
	assert.Equal(t, 150, w.Len())
}

func TestReverseEmptyStore(t *testing.T) {
	_, ok := pagination.Reverse(0, pagination.Params{Page: 1, PerPage: 10})
	assert.False(t, ok)
	assert.Equal(t, 0, pagination.TotalPages(0, 10))
}

func TestReverseCoversEveryMessageOnce(t *testing.T) {
	for total := uint32(0); total <= 40; total++ {
		for perPage := 1; perPage <= 12; perPage++ {
			pages := pagination.TotalPages(total, perPage)
			require.Equal(t, int((total+uint32(perPage)-1)/uint32(perPage)), pages)

			seen := make(map[uint32]bool)
			var order []uint32
			for page := 1; page <= pages; page++ {
				w, ok := pagination.Reverse(total, pagination.Params{Page: page, PerPage: perPage})
				require.True(t, ok, "total=%d perPage=%d page=%d", total, perPage, page)
				require.LessOrEqual(t, w.Len(), perPage)

				for _, n := range w.Descending() {
					require.False(t, seen[n], "message %d listed twice", n)
					seen[n] = true
					order = append(order, n)
				}
			}

			require.Len(t, seen, int(total))
			if total > 0 {
				assert.Equal(t, total, order[0], "newest message must lead page 1")
				assert.Equal(t, uint32(1), order[len(order)-1])
			}
		}
	}
}

func TestHasNext(t *testing.T) {
	assert.True(t, pagination.HasNext(21, pagination.Params{Page: 1, PerPage: 20}))
	assert.False(t, pagination.HasNext(21, pagination.Params{Page: 2, PerPage: 20}))
	assert.False(t, pagination.HasNext(0, pagination.Params{Page: 1, PerPage: 20}))
}
