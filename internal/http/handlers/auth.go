package handlers

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	dbpkg "deliverystats/internal/db"
	"deliverystats/internal/http/session"
	ui "deliverystats/web"
)

type loginData struct {
	Error    string
	Username string
}

func renderLogin(ctx *fasthttp.RequestCtx, status int, data loginData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "login.html", data); err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// LoginForm renders the sign-in page.
func LoginForm() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		renderLogin(ctx, fasthttp.StatusOK, loginData{})
	}
}

// LoginSubmit checks the credentials and sets a signed session cookie.
func LoginSubmit(db *gorm.DB, secret string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := strings.TrimSpace(string(ctx.PostArgs().Peek("username")))
		password := string(ctx.PostArgs().Peek("password"))
		failed := loginData{Error: "Invalid username or password.", Username: username}

		var user dbpkg.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				renderLogin(ctx, fasthttp.StatusUnauthorized, failed)
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			renderLogin(ctx, fasthttp.StatusUnauthorized, failed)
			return
		}

		setSession(ctx, session.Sign(secret, user.Username, time.Now().Add(session.TTL)), int(session.TTL/time.Second))
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// Logout clears the session cookie.
func Logout() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		setSession(ctx, "", -1)
		ctx.Redirect("/login", fasthttp.StatusSeeOther)
	}
}

func setSession(ctx *fasthttp.RequestCtx, value string, maxAge int) {
	var c fasthttp.Cookie
	c.SetKey(session.CookieName)
	c.SetValue(value)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetMaxAge(maxAge)
	ctx.Response.Header.SetCookie(&c)
}
