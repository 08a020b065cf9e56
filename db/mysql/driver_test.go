package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN_ForcesParseTime(t *testing.T) {
	out, err := NormalizeDSN("battle:secret@tcp(127.0.0.1:3306)/creatures")
	require.NoError(t, err)
	assert.Contains(t, out, "parseTime=true")
	assert.Contains(t, out, "/creatures")
}

func TestNormalizeDSN_KeepsExplicitParams(t *testing.T) {
	out, err := NormalizeDSN("u:p@tcp(db:3306)/creatures?parseTime=false&timeout=5s")
	require.NoError(t, err)
	assert.Contains(t, out, "parseTime=true")
	assert.Contains(t, out, "timeout=5s")
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	_, err := NormalizeDSN("not a dsn")
	assert.Error(t, err)
}
