// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const (
	// keyCacheTTL is how long fetched signing keys are trusted.
	keyCacheTTL = time.Hour

	// minRefetchInterval limits refetches triggered by an unknown key ID.
	minRefetchInterval = time.Minute

	fetchTimeout = 10 * time.Second
)

// keyFormat selects how a key endpoint encodes its keys.
type keyFormat int

const (
	// formatJWKS is a JSON Web Key Set with RSA modulus and exponent.
	formatJWKS keyFormat = iota
	// formatX509 is a JSON object mapping key IDs to PEM certificates.
	formatX509
)

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keyCache fetches and caches a provider's RSA signing keys by key ID.
type keyCache struct {
	url    string
	format keyFormat
	client *http.Client
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func newKeyCache(url string, format keyFormat, client *http.Client, now func() time.Time) *keyCache {
	return &keyCache{url: url, format: format, client: client, now: now}
}

// key returns the public key for kid, fetching when the cache is stale.
func (cache *keyCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	cache.mu.RLock()
	key, found := cache.keys[kid]
	fresh := cache.keys != nil && cache.now().Sub(cache.fetchedAt) < keyCacheTTL
	cache.mu.RUnlock()

	if found && fresh {
		return key, nil
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	age := cache.now().Sub(cache.fetchedAt)
	if key, found := cache.keys[kid]; found && age < keyCacheTTL {
		return key, nil
	}
	if cache.keys != nil && age < minRefetchInterval {
		return nil, fmt.Errorf("provider: unknown key id %q", kid)
	}

	keys, err := cache.fetch(ctx)
	if err != nil {
		return nil, err
	}
	cache.keys = keys
	cache.fetchedAt = cache.now()

	key, found = keys[kid]
	if !found {
		return nil, fmt.Errorf("provider: unknown key id %q", kid)
	}
	return key, nil
}

func (cache *keyCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, cache.url, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build key request: %w", err)
	}

	response, err := cache.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("provider: fetch keys: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("provider: fetch keys: status %d: %s", response.StatusCode, body)
	}

	switch cache.format {
	case formatX509:
		return decodeX509(response.Body)
	default:
		return decodeJWKS(response.Body)
	}
}

func decodeJWKS(body io.Reader) (map[string]*rsa.PublicKey, error) {
	var set jsonWebKeySet
	if err := json.NewDecoder(body).Decode(&set); err != nil {
		return nil, fmt.Errorf("provider: decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		key, err := rsaFromJWK(jwk)
		if err != nil {
			return nil, err
		}
		keys[jwk.Kid] = key
	}
	return keys, nil
}

func rsaFromJWK(jwk jsonWebKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("provider: decode modulus of %q: %w", jwk.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("provider: decode exponent of %q: %w", jwk.Kid, err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func decodeX509(body io.Reader) (map[string]*rsa.PublicKey, error) {
	var certs map[string]string
	if err := json.NewDecoder(body).Decode(&certs); err != nil {
		return nil, fmt.Errorf("provider: decode certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return nil, fmt.Errorf("provider: certificate %q is not PEM", kid)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("provider: parse certificate %q: %w", kid, err)
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("provider: certificate %q has no RSA key", kid)
		}
		keys[kid] = key
	}
	return keys, nil
}
