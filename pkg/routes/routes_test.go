package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/database"
)

func newContext(target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{name: "valid", value: "42", want: 42},
		{name: "zero", value: "0", wantErr: true},
		{name: "negative", value: "-3", wantErr: true},
		{name: "text", value: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContext("/")
			c.SetParamNames("id")
			c.SetParamValues(tt.value)

			got, err := ParseID(c, "id")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(newContext("/?page=3&page_size=50"))
	require.NoError(t, err)
	assert.Equal(t, database.Page{Page: 3, PageSize: 50}, page)

	page, err = ParsePage(newContext("/"))
	require.NoError(t, err)
	assert.Equal(t, database.Page{Page: 1, PageSize: database.DefaultPageSize}, page)

	page, err = ParsePage(newContext("/?page_size=5000"))
	require.NoError(t, err)
	assert.Equal(t, database.MaxPageSize, page.PageSize)

	_, err = ParsePage(newContext("/?page=two"))
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	b, err := ParseBool(newContext("/?all=true"), "all")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = ParseBool(newContext("/"), "all")
	require.NoError(t, err)
	assert.False(t, b)

	_, err = ParseBool(newContext("/?all=maybe"), "all")
	assert.Error(t, err)
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 0, database.Page{})
	assert.NotNil(t, resp.Items)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, database.DefaultPageSize, resp.PageSize)
}
