package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func newLocaleRequest(setup func(r *http.Request)) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.4:80"
	if setup != nil {
		setup(req)
	}
	return req
}

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-locale overrides everything",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
				r.Header.Set("Accept-Language", "es-MX,es;q=0.9")
			},
			country: "US",
			want:    "id",
		},
		{
			name: "x-locale spanish",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "es")
			},
			want: "es",
		},
		{
			name: "x-locale unsupported falls back to en",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "zz-bogus")
			},
			want: "en",
		},
		{
			name: "accept-language english",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language indonesian",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID,en;q=0.8")
			},
			want: "id",
		},
		{
			name: "accept-language regional spanish matches base",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "es-MX,es;q=0.9")
			},
			want: "es",
		},
		{
			name:    "country id",
			country: "ID",
			want:    "id",
		},
		{
			name:    "country es",
			country: "ES",
			want:    "es",
		},
		{
			name:    "country mx maps to spanish",
			country: "MX",
			want:    "es",
		},
		{
			name:    "country ar maps to spanish",
			country: "AR",
			want:    "es",
		},
		{
			name:    "country without a locale uses en",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "id",
			want:     "id",
		},
		{
			name: "default to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := newLocaleRequest(tc.setup)
			got := detectLocale(req, tc.fallback, tc.country)
			if got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "country header beats cdn header",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "x-locale region",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "es-MX")
			},
			want: "MX",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "indonesian locale without region hints ID",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id;q=0.8")
			},
			want: "ID",
		},
		{
			name: "numeric region is not a country",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "es-419,es;q=0.9")
			},
			want: "",
		},
		{
			name: "geoip resolver",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := newLocaleRequest(tc.setup)
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"es", "es"},
		{"es-MX", "es"},
		{"ID", "id"},
		{"en-US", "en"},
		{"not a tag", "en"},
	}
	for _, tc := range tests {
		if got := normalizeLocale(tc.in); got != tc.want {
			t.Fatalf("normalizeLocale(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	ctx = context.WithValue(ctx, LocaleKey, "es")
	if got := LocaleFromContext(ctx); got != "es" {
		t.Fatalf("LocaleFromContext() with value = %q, want %q", got, "es")
	}
}
