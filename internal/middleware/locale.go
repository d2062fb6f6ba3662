package middleware

import (
	"net/http"
	"strings"

	"github.com/faizanr27/food-facts/internal/i18n"
)

// Locale resolves the UI language from ?hl=, then the session, then
// Accept-Language. An explicit ?hl= choice is persisted in the session.
func Locale(bundle *i18n.Bundle, sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Language")
			sess := SessionFrom(r.Context())

			lang := ""
			if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hl"))); q != "" && bundle.IsSupported(q) {
				lang = q
				if sess.ID != "" && sess.Locale != q {
					sess.Locale = q
					if sessions != nil {
						sessions.Save(w, r, sess)
					}
				}
			}
			if lang == "" && sess.Locale != "" && bundle.IsSupported(sess.Locale) {
				lang = sess.Locale
			}
			if lang == "" {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}

			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), lang)))
		})
	}
}
