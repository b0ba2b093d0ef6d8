// Package binder fills request structs from HTTP requests.
//
// Each binder is a func(r *http.Request, v any) error that handles one
// source, so a route can combine them:
//
//	type SnoozeRequest struct {
//		Key      string        `path:"key" json:"-"`
//		Duration time.Duration `query:"for" json:"-"`
//	}
//
//	binders := []func(*http.Request, any) error{
//		binder.Path(chi.URLParam),
//		binder.Query(),
//	}
//
//   - JSON() decodes a strict application/json body of at most
//     DefaultMaxJSONSize bytes.
//   - Query() binds `query:"name"` fields.
//   - Path(extractor) binds `path:"name"` fields through a router lookup.
//
// Supported field types are strings, integers, floats, booleans,
// time.Duration, pointers to those for optional values, and slices for
// repeated or comma-separated parameters.
//
// Failures wrap ErrUnsupportedMediaType, ErrMissingContentType,
// ErrFailedToParseJSON, ErrFailedToParseQuery or ErrFailedToParsePath.
package binder
