package middleware

import (
	"bytes"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"deliverystats/internal/config"
	dbpkg "deliverystats/internal/db"
	httpctx "deliverystats/internal/http/ctx"
	"deliverystats/internal/http/session"
)

// AdminAuth returns middleware that verifies the signed session cookie,
// loads its user and sets it on the context. JSON endpoints get 401 instead
// of a redirect to the login page.
func AdminAuth(db *gorm.DB, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			username, err := session.Verify(cfg.SessionSecret, string(ctx.Request.Header.Cookie(session.CookieName)), time.Now())
			if err != nil {
				deny(ctx)
				return
			}

			var user dbpkg.User
			if err := db.Where("username = ?", username).First(&user).Error; err != nil {
				deny(ctx)
				return
			}

			if user.Username == cfg.AdminUser {
				user.IsAdmin = true
			}

			httpctx.SetUser(ctx, &user)
			next(ctx)
		}
	}
}

func deny(ctx *fasthttp.RequestCtx) {
	if bytes.HasPrefix(ctx.Path(), []byte("/v1/")) {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return
	}
	ctx.Redirect("/login", fasthttp.StatusSeeOther)
}
