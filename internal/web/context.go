package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvtable/internal/core"
	mw "github.com/JonMunkholm/csvtable/internal/web/middleware"
)

// withRequestMetadata copies the client IP and User-Agent into ctx so saved
// snippets record where they came from.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, mw.ClientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
