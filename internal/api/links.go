package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/entries>; rel="entries"`,
		`</api/v1/session>; rel="session"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/basemaps>; rel="basemaps"`,
	},
	"/api/v1/entries": {
		`</api/v1/session>; rel="session"`,
		`</api/v1/edits>; rel="history"`,
	},
	"/api/v1/entries/{id}": {
		`</api/v1/entries>; rel="collection"`,
		`</api/v1/session/start>; rel="edit"`,
	},
	"/api/v1/session": {
		`</api/v1/session/start>; rel="start"`,
		`</api/v1/session/end>; rel="end"`,
		`</api/v1/session/zoom>; rel="zoom"`,
		`</api/v1/editor/stream>; rel="stream"`,
	},
	"/api/v1/session/start": {
		`</api/v1/session>; rel="session"`,
		`</api/v1/session/end>; rel="end"`,
	},
	"/api/v1/session/end": {
		`</api/v1/session>; rel="session"`,
		`</api/v1/edits>; rel="history"`,
	},
	"/api/v1/basemaps": {
		`</api/v1/session>; rel="session"`,
	},
	"/api/v1/basemaps/loaded": {
		`</api/v1/basemaps>; rel="basemaps"`,
	},
	"/api/v1/edits": {
		`</api/v1/entries>; rel="entries"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
