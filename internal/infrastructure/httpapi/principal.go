package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/freshmart/orderflow/internal/domain/auth"
)

const (
	headerUserID = "X-User-ID"
	headerAdmin  = "X-Admin"
	headerAgent  = "X-Agent"
)

// principalFrom trusts identity headers set by the upstream auth proxy. The
// core never sees credentials.
func principalFrom(r *http.Request) (auth.Principal, bool) {
	raw := r.Header.Get(headerUserID)
	if raw == "" {
		return auth.Principal{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return auth.Principal{}, false
	}
	return auth.Principal{
		UserID:        userID,
		Admin:         r.Header.Get(headerAdmin) == "true",
		DeliveryAgent: r.Header.Get(headerAgent) == "true",
	}, true
}

type principalKey struct{}

func contextWithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) auth.Principal {
	p, _ := ctx.Value(principalKey{}).(auth.Principal)
	return p
}
