package middleware

import (
	"bytes"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "deliverystats/internal/db"
	httpctx "deliverystats/internal/http/ctx"
)

var (
	errMissingAuth = errors.New("missing Authorization header")
	errBadScheme   = errors.New("invalid Authorization header")
	errEmptyToken  = errors.New("empty bearer token")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header []byte) (string, error) {
	if len(header) == 0 {
		return "", errMissingAuth
	}
	const prefix = "Bearer "
	if !bytes.HasPrefix(header, []byte(prefix)) {
		return "", errBadScheme
	}
	token := strings.TrimSpace(string(header[len(prefix):]))
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// BearerAuth lets a feeder through when its token matches an active API key.
// The key and its owner are put on the request context for the ingest handler.
func BearerAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			token, err := BearerToken(ctx.Request.Header.Peek("Authorization"))
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString(err.Error())
				return
			}

			var apiKey dbpkg.APIKey
			if err := db.Where("key = ? AND active = ?", token, true).Preload("User").First(&apiKey).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.SetStatusCode(fasthttp.StatusUnauthorized)
					ctx.SetBodyString("invalid API key")
					return
				}
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("database error")
				return
			}

			httpctx.SetAPIKey(ctx, &apiKey)
			httpctx.SetUser(ctx, &apiKey.User)
			next(ctx)
		}
	}
}
