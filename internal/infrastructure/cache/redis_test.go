package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb, err := Open("redis://" + mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())

	_, err = Open("not a url")
	assert.Error(t, err)
}
