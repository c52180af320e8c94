package http

import (
	"encoding/base64"
	stdhttp "net/http"
)

// flashCookieName carries a one-shot notice across a redirect.
const flashCookieName = "wiki_flash"

func flashCookie(notice string) stdhttp.Cookie {
	return stdhttp.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(notice)),
		Path:     "/",
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
	}
}

func expiredFlashCookie() stdhttp.Cookie {
	return stdhttp.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
	}
}

// readFlash decodes a flash cookie value, ignoring anything malformed.
func readFlash(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return ""
	}
	return string(decoded)
}
