package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQuery(t *testing.T) {
	q := PageQuery{}.Normalize(20)
	assert.Equal(t, PageQuery{Page: 1, Limit: 20}, q)
	assert.Equal(t, 0, q.Offset())

	q = PageQuery{Page: 3, Limit: 10}.Normalize(20)
	assert.Equal(t, 20, q.Offset())
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(PageQuery{Page: 2, Limit: 10}, 21)
	assert.Equal(t, PaginationMeta{CurrentPage: 2, TotalPages: 3, TotalItems: 21, Limit: 10}, meta)

	assert.Equal(t, 0, NewPaginationMeta(PageQuery{Page: 1, Limit: 10}, 0).TotalPages)
}
