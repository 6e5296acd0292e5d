package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		count      int64
		raw        string
		wantNumber int
		wantPages  int
		wantOffset int
	}{
		{"first page by default", 12, "", 1, 2, 0},
		{"second page", 12, "2", 2, 2, 10},
		{"past the end returns the last page", 12, "3", 2, 2, 10},
		{"non-numeric is page one", 12, "abc", 1, 2, 0},
		{"zero is the last page", 12, "0", 2, 2, 10},
		{"negative is the last page", 12, "-4", 2, 2, 10},
		{"empty result has one page", 0, "5", 1, 1, 0},
		{"exact multiple", 20, "2", 2, 2, 10},
		{"whitespace is trimmed", 25, " 3 ", 3, 3, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Paginate(tt.count, tt.raw, PostsPerPage)
			assert.Equal(t, tt.wantNumber, w.Number)
			assert.Equal(t, tt.wantPages, w.NumPages)
			assert.Equal(t, tt.wantOffset, w.Offset())
			assert.Equal(t, PostsPerPage, w.Limit())
		})
	}
}

func TestNewPage(t *testing.T) {
	first := NewPage([]int{1, 2}, Paginate(12, "1", PostsPerPage))
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrevious)

	last := NewPage([]int{11, 12}, Paginate(12, "2", PostsPerPage))
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrevious)
	assert.Equal(t, int64(12), last.Count)

	empty := NewPage[int](nil, Paginate(0, "", PostsPerPage))
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.NumPages)
}
