package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserIDAcceptsJWTNumericForms(t *testing.T) {
	cases := []struct {
		name string
		val  interface{}
		want uint64
	}{
		{"float64 from JWT claims", float64(42), 42},
		{"uint64", uint64(7), 7},
		{"int64", int64(9), 9},
		{"int", 3, 3},
		{"numeric string", "15", 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestContext(t)
			c.Set("user_id", tc.val)
			got, err := getUserID(c)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetUserIDRejectsJunk(t *testing.T) {
	for _, v := range []interface{}{nil, "abc", struct{}{}} {
		c := newTestContext(t)
		if v != nil {
			c.Set("user_id", v)
		}
		_, err := getUserID(c)
		assert.Error(t, err)
	}
}

func TestPathID(t *testing.T) {
	c := newTestContext(t)
	c.SetParamNames("id")
	c.SetParamValues("12")
	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c := newTestContext(t)
		c.SetParamNames("id")
		c.SetParamValues(bad)
		_, err := pathID(c, "id")
		assert.Error(t, err, "value %q", bad)
	}
}
