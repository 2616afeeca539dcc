package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size int
		from, lim  int
	}{
		{page: 1, size: 10, from: 0, lim: 10},
		{page: 3, size: 20, from: 40, lim: 20},
		{page: 0, size: 5, from: 0, lim: 5},
		{page: -2, size: 0, from: 0, lim: DefaultPageSize},
		{page: 2, size: 500, from: DefaultPageSize, lim: DefaultPageSize},
	}

	for _, tt := range tests {
		from, lim := Window(tt.page, tt.size)
		assert.Equal(t, tt.from, from, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, tt.lim, lim, "page=%d size=%d", tt.page, tt.size)
	}
}
