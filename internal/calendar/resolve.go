package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// lookupEntry is the value of each key in the address lookup response.
type lookupEntry struct {
	Href *string `json:"href"`
}

// Resolver turns a free-text address into the calendar detail page URL using
// the provider's address lookup endpoint.
type Resolver struct {
	endpoint *url.URL
	fetcher  Fetcher
}

// NewResolver validates the lookup endpoint and returns a Resolver.
func NewResolver(lookupURL string, f Fetcher) (*Resolver, error) {
	u, err := url.Parse(lookupURL)
	if err != nil {
		return nil, fmt.Errorf("parse lookup url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("lookup url %q must be absolute", lookupURL)
	}
	return &Resolver{endpoint: u, fetcher: f}, nil
}

// LookupURL returns the request URL used for address.
func (r *Resolver) LookupURL(address string) string {
	u := *r.endpoint
	q := u.Query()
	q.Set("lookup_term", address)
	u.RawQuery = q.Encode()
	return u.String()
}

// Resolve looks up address and returns the absolute URL of its calendar page.
// The lookup must yield exactly one match.
func (r *Resolver) Resolve(ctx context.Context, address string) (*url.URL, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrEmptyAddress
	}

	body, err := r.fetcher.Fetch(ctx, r.LookupURL(address))
	if err != nil {
		return nil, fmt.Errorf("address lookup: %w", err)
	}

	href, err := decodeLookup(body)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", address, err)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: href %q: %v", ErrMalformedResponse, href, err)
	}
	origin := &url.URL{Scheme: r.endpoint.Scheme, Host: r.endpoint.Host, Path: "/"}
	return origin.ResolveReference(ref), nil
}

// decodeLookup extracts the single href from a lookup response body. Keys are
// counted as they appear, so a duplicated key is still two matches.
func decodeLookup(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	type entry struct {
		key string
		raw json.RawMessage
	}
	var entries []entry

	switch tok {
	case json.Delim('['):
		// An empty result is serialised as a JSON array by the endpoint.
		if end, err := dec.Token(); err != nil || end != json.Delim(']') {
			return "", fmt.Errorf("%w: expected an object or an empty array", ErrMalformedResponse)
		}
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			key, _ := keyTok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return "", fmt.Errorf("%w: entry %q: %v", ErrMalformedResponse, key, err)
			}
			entries = append(entries, entry{key: key, raw: raw})
		}
		if _, err := dec.Token(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	default:
		return "", fmt.Errorf("%w: expected a JSON object, got %v", ErrMalformedResponse, tok)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data after lookup result", ErrMalformedResponse)
	}

	switch len(entries) {
	case 0:
		return "", ErrAddressNotFound
	case 1:
	default:
		return "", fmt.Errorf("%w: %d matches", ErrAmbiguousAddress, len(entries))
	}

	var e lookupEntry
	if err := json.Unmarshal(entries[0].raw, &e); err != nil {
		return "", fmt.Errorf("%w: entry %q: %v", ErrMalformedResponse, entries[0].key, err)
	}
	if e.Href == nil || strings.TrimSpace(*e.Href) == "" {
		return "", fmt.Errorf("%w: entry %q has no href", ErrMalformedResponse, entries[0].key)
	}
	return strings.TrimSpace(*e.Href), nil
}
