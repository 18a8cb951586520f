package urlutil

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is percent-decoded where safe, then cleaned (./ and ../ collapsed,
//     trailing slash removed except for root "/")
//   - Fragments are removed
//   - Query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	// Lowercase scheme and host
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	// Remove default port if present
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	canonical.Path = cleanPath(percentDecodeSafe(canonical.Path))

	// Remove fragment (anchor)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	// Remove query parameters
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// cleanPath collapses "." and ".." segments and strips a trailing slash
// (except for the root path).
func cleanPath(p string) string {
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	// path.Clean removes a trailing slash already; re-derive whether the
	// original had meaningful segments beyond root.
	if len(cleaned) > 1 {
		cleaned = stripTrailingSlash(cleaned)
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// percentDecodeSafe decodes percent-escaped octets that are safe to represent
// literally (unreserved characters per RFC 3986 §2.3), leaving reserved and
// malformed escapes untouched so the path structure cannot change meaning.
func percentDecodeSafe(p string) string {
	if !strings.Contains(p, "%") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '%' && i+2 < len(p) && isHex(p[i+1]) && isHex(p[i+2]) {
			decoded := hexVal(p[i+1])<<4 | hexVal(p[i+2])
			if isUnreserved(decoded) {
				b.WriteByte(decoded)
				i += 2
				continue
			}
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// lowerASCII converts ASCII characters to lowercase. It returns s unchanged
// without allocating when s has no uppercase ASCII letter, and copies it
// into a new byte slice otherwise.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// Resolve resolves a possibly-relative URL against a base scheme and host,
// returning an absolute URL. If ref is already absolute, it is returned as-is.
func Resolve(ref url.URL, baseScheme, baseHost string) url.URL {
	if ref.Scheme != "" && ref.Host != "" {
		return ref
	}
	resolved := ref
	if resolved.Scheme == "" {
		resolved.Scheme = baseScheme
	}
	if resolved.Host == "" {
		resolved.Host = baseHost
	}
	return resolved
}

// ResolveRef resolves ref against base using the standard URL reference
// resolution algorithm (RFC 3986 §5), honoring relative paths, ../, and a
// document's <base href>.
func ResolveRef(base url.URL, ref url.URL) url.URL {
	resolved := base.ResolveReference(&ref)
	return *resolved
}

// EffectiveDomain returns the effective top-level-domain-plus-one (eTLD+1)
// for a hostname, e.g. "docs.example.co.uk" -> "example.co.uk". If the
// hostname cannot be classified (e.g. it's an IP literal), the hostname
// itself is returned unchanged.
func EffectiveDomain(host string) string {
	hostname := host
	if h, _, err := splitHostPort(host); err == nil {
		hostname = h
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(lowerASCII(hostname))
	if err != nil {
		return lowerASCII(hostname)
	}
	return etld1
}

func splitHostPort(hostport string) (string, string, error) {
	u := url.URL{Host: hostport}
	return u.Hostname(), u.Port(), nil
}

// SameDomain reports whether two hosts share the same effective domain
// (eTLD+1), used for restrict_to_seed_domain enforcement.
func SameDomain(a, b string) bool {
	return EffectiveDomain(a) == EffectiveDomain(b)
}
