package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDList(t *testing.T) {
	r := httptest.NewRequest("GET", "/deals?agents=1,4,%207", nil)
	ids, err := parseIDList(r, "agents")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 7}, ids)

	r = httptest.NewRequest("GET", "/deals", nil)
	ids, err = parseIDList(r, "agents")
	require.NoError(t, err)
	assert.Nil(t, ids)

	r = httptest.NewRequest("GET", "/deals?agents=1,x", nil)
	_, err = parseIDList(r, "agents")
	assert.Error(t, err)
}

func TestParseStringList(t *testing.T) {
	r := httptest.NewRequest("GET", "/deals?dealTypes=buyer,seller,", nil)
	assert.Equal(t, []string{"buyer", "seller"}, parseStringList(r, "dealTypes"))

	r = httptest.NewRequest("GET", "/deals", nil)
	assert.Nil(t, parseStringList(r, "dealTypes"))
}

func TestParseYearDefaultsToCurrent(t *testing.T) {
	r := httptest.NewRequest("GET", "/analytics/yearly", nil)
	year, err := parseYear(r)
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Year(), year)
}

func TestParseYearRejectsGarbage(t *testing.T) {
	for _, v := range []string{"abc", "0", "-5", "12345"} {
		r := httptest.NewRequest("GET", "/analytics/yearly?year="+v, nil)
		_, err := parseYear(r)
		assert.Error(t, err, v)
	}
}

func TestParseDateQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/analytics/closing?until=2025-07-31", nil)
	d, err := parseDateQuery(r, "until")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.July, d.Month())

	r = httptest.NewRequest("GET", "/analytics/closing?until=31-07-2025", nil)
	_, err = parseDateQuery(r, "until")
	assert.Error(t, err)
}
