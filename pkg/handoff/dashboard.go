package handoff

import (
	"html"
	"net/http"
	"strings"

	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

// DashboardHandler serves the minimal landing page the wizard hands off to.
// It only verifies the token; the real dashboard lives elsewhere.
func (i *Issuer) DashboardHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := i.Verify(r.URL.Query().Get("token"))
		if err != nil {
			logging.L(r.Context()).Warn("dashboard handoff rejected", logging.Err(err))
			http.Error(w, "Your sign-in link is invalid or has expired.", http.StatusUnauthorized)
			return
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Dashboard</title></head><body>`)
		b.WriteString(`<main class="dashboard">`)
		b.WriteString(`<h1>Welcome to your dashboard</h1>`)
		b.WriteString(`<p>Signed in as `)
		b.WriteString(html.EscapeString(claims.Email))
		b.WriteString(`</p>`)
		if r.URL.Query().Get("tour") == "1" {
			b.WriteString(`<section class="tour" data-tour="start"><h2>Let's take a quick tour</h2></section>`)
		}
		b.WriteString(`</main></body></html>`)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(b.String()))
	})
}
