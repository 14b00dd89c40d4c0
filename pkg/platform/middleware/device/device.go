// Package device labels the scanning device from its User-Agent so scan
// events can say where a credential was presented from.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"barangay/pkg/requestcontext"
)

const unknownDevice = "Unknown Device"

// Label returns a short display name such as "Chrome on Android 13" or
// "Safari on iPhone". Empty input yields "Unknown Device".
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	// Android reports its platform as "Linux"; the OS string is more useful there.
	if ua.Mobile() && !strings.HasPrefix(os, "Android") {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

// Middleware derives the device label from the User-Agent already placed in
// the context by the metadata middleware, falling back to the request header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userAgent := requestcontext.UserAgent(ctx)
		if userAgent == "" {
			userAgent = r.Header.Get("User-Agent")
		}
		ctx = requestcontext.WithDeviceLabel(ctx, Label(userAgent))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
