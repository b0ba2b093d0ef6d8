package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/binder"
)

type request struct {
	Package string        `path:"pkg" json:"-"`
	ID      int           `path:"id" json:"-"`
	Tag     string        `query:"tag" json:"-"`
	For     time.Duration `query:"for" json:"-"`
	Keys    []string      `query:"key" json:"-"`
	Limit   *int          `query:"limit" json:"-"`
	Title   string        `json:"title"`
	Ignored string        `json:"-"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		err         error
	}{
		{"ok", "application/json", `{"title":"hi"}`, "hi", nil},
		{"charset", "application/json; charset=utf-8", `{"title":"hi"}`, "hi", nil},
		{"missing content type", "", `{}`, "", binder.ErrMissingContentType},
		{"wrong content type", "text/plain", `{}`, "", binder.ErrUnsupportedMediaType},
		{"empty", "application/json", ``, "", binder.ErrFailedToParseJSON},
		{"unknown field", "application/json", `{"nope":1}`, "", binder.ErrFailedToParseJSON},
		{"trailing data", "application/json", `{"title":"a"}{}`, "", binder.ErrFailedToParseJSON},
		{"too large", "application/json", `{"title":"` + strings.Repeat("x", binder.DefaultMaxJSONSize) + `"}`, "", binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var v request
			err := binder.JSON()(r, &v)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Title)
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?tag=t&for=15m&key=a,b&key=c&limit=3&title=skipped", nil)
	var v request
	require.NoError(t, binder.Query()(r, &v))
	assert.Equal(t, "t", v.Tag)
	assert.Equal(t, 15*time.Minute, v.For)
	assert.Equal(t, []string{"a", "b", "c"}, v.Keys)
	require.NotNil(t, v.Limit)
	assert.Equal(t, 3, *v.Limit)
	assert.Empty(t, v.Title)

	for _, q := range []string{"for=soon", "limit=x"} {
		r := httptest.NewRequest(http.MethodGet, "/?"+q, nil)
		assert.ErrorIs(t, binder.Query()(r, &request{}), binder.ErrFailedToParseQuery, q)
	}
}

func TestPath(t *testing.T) {
	t.Parallel()

	params := map[string]string{"pkg": "app1", "id": "42"}
	extract := func(_ *http.Request, name string) string { return params[name] }
	r := httptest.NewRequest(http.MethodDelete, "/", nil)

	var v request
	require.NoError(t, binder.Path(extract)(r, &v))
	assert.Equal(t, "app1", v.Package)
	assert.Equal(t, 42, v.ID)

	params["id"] = "forty-two"
	assert.ErrorIs(t, binder.Path(extract)(r, &v), binder.ErrFailedToParsePath)
	assert.ErrorIs(t, binder.Path(nil)(r, &v), binder.ErrFailedToParsePath)
	assert.ErrorIs(t, binder.Path(extract)(r, v), binder.ErrFailedToParsePath)
}
