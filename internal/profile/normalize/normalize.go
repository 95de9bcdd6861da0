// Package normalize canonicalizes user-supplied links before they are stored
// on a profile.
package normalize

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

// URL forces https and a canonical host form:
//
//	example.com               -> https://example.com
//	http://WWW.Example.com:80/ -> https://example.com
//	//cdn.example.com/a/?utm_source=x&b=2&a=1 -> https://cdn.example.com/a?a=1&b=2
//
// Fragments are kept. Schemes other than http and https are rejected.
func URL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case !strings.Contains(s, "://"):
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" || u.Opaque != "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	u.Host = canonicalHost(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = canonicalQuery(u.Query())
	return u.String(), nil
}

func canonicalHost(hostport string) string {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	// only strip www. when a registrable domain remains (www.com stays)
	if rest := strings.TrimPrefix(host, "www."); rest != host && strings.Contains(rest, ".") {
		host = rest
	}
	if port == "" || port == "80" || port == "443" {
		return host
	}
	return net.JoinHostPort(host, port)
}

func canonicalQuery(q url.Values) string {
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
