package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The SQL close basis must stay independent of the session TimeZone so it
// agrees with the in-process engine, which works in UTC. A timestamptz cast
// would shift a Dec 31 close into the neighboring year on a non-UTC server.
func TestCloseBasisIsSessionTimeZoneIndependent(t *testing.T) {
	assert.False(t, strings.Contains(closeBasisSQL, "timestamptz"))
	assert.Contains(t, closeBasisSQL, "d.close_date::timestamp")
	assert.Contains(t, closeBasisSQL, "d.closed_at AT TIME ZONE 'UTC'")
}
