package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/view"
)

const themeCookie = "theme"

// sanitizeInput removes control characters except tab, newline and carriage
// return. It does not trim.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if (r < 32 && r != 9 && r != 10 && r != 13) || r == 127 {
			return -1
		}
		return r
	}, s)
}

func themeFromRequest(r *http.Request) view.Theme {
	c, err := r.Cookie(themeCookie)
	if err != nil {
		return view.ThemeLight
	}
	return view.ParseTheme(c.Value)
}

func setThemeCookie(w http.ResponseWriter, t view.Theme) {
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    t.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// validationMessage turns a parse error into the text shown next to the
// form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a non-negative number, e.g. 12.34 or 12,34"
	case errors.Is(err, core.ErrInvalidCategory):
		return "Category must be income or expense"
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must be a calendar date (YYYY-MM-DD)"
	default:
		return "Invalid input"
	}
}

// isHTMX reports whether the request came from htmx rather than a plain
// form post.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
