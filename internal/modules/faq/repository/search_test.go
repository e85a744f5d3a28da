package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHits(t *testing.T) {
	raw := []byte(`{"hits":[{"id":"1","question":"Is it free?","answer":"Yes.","_rankingScore":0.9}],"query":"free","limit":10}`)
	hits, err := decodeHits(raw)
	require.NoError(t, err)
	assert.Equal(t, []SearchHit{{ID: "1", Question: "Is it free?", Answer: "Yes."}}, hits)

	_, err = decodeHits([]byte(`not json`))
	assert.Error(t, err)
}
