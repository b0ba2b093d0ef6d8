package binder

import "net/http"

// Query creates a binder for URL query parameters tagged `query:"name"`.
// Repeated parameters and comma-separated values fill slices.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", func(name string) []string {
			return r.URL.Query()[name]
		}, ErrFailedToParseQuery)
	}
}
