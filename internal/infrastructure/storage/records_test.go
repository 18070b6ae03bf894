package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copywatch/internal/ports"
)

func TestBuildListQueryOpenFilter(t *testing.T) {
	t.Parallel()

	stmt, args, err := buildListQuery(ports.RecordQuery{
		Lang:   "en",
		Filter: "open",
		LastID: 900,
		Limit:  25,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, stmt, "FROM copyright_diffs")
	assert.Contains(t, stmt, "lang = ?")
	assert.Contains(t, stmt, "id < ?")
	assert.Contains(t, stmt, "status = ?")
	assert.Contains(t, stmt, "ORDER BY id DESC")
	assert.Contains(t, stmt, "LIMIT 25")
	assert.Equal(t, []interface{}{"en", int64(900), 0}, args)
}

func TestBuildListQueryPermalinkIgnoresCursor(t *testing.T) {
	t.Parallel()

	stmt, args, err := buildListQuery(ports.RecordQuery{
		Lang:     "en",
		RecordID: 42,
		LastID:   900,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, stmt, "id = ?")
	assert.NotContains(t, stmt, "id < ?")
	assert.Contains(t, stmt, "LIMIT 50")
	assert.Equal(t, []interface{}{"en", int64(42)}, args)
}

func TestBuildListQueryReviewedFilter(t *testing.T) {
	t.Parallel()

	stmt, _, err := buildListQuery(ports.RecordQuery{Lang: "es", Filter: "reviewed"}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, stmt, "status <> ?")
}
