package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func mustGenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func signingClient(key *rsa.PrivateKey) *Client {
	return &Client{
		defaultBucket: "agrolink-media",
		serviceAccount: &serviceAccountInfo{
			clientEmail: "signer@example.com",
			privateKey:  key,
		},
	}
}

func verifySignature(t *testing.T, key *rsa.PrivateKey, toSign string, values url.Values) {
	t.Helper()
	signature, err := url.QueryUnescape(values.Get("Signature"))
	if err != nil {
		t.Fatalf("unescape signature: %v", err)
	}
	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	hash := sha256.Sum256([]byte(toSign))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
}

func TestSignedURLProducesVerifiablePutSignature(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := signingClient(key)

	object := "requests/farmer-1/upload-1/wheat.png"
	urlStr, err := client.SignedURL("agrolink-media", object, "image/png", 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if !strings.EqualFold(parsed.Host, "storage.googleapis.com") {
		t.Fatalf("unexpected host %s", parsed.Host)
	}

	values := parsed.Query()
	if got := values.Get("GoogleAccessId"); got != "signer@example.com" {
		t.Fatalf("unexpected GoogleAccessId %q", got)
	}

	expires := values.Get("Expires")
	if _, err := strconv.ParseInt(expires, 10, 64); err != nil {
		t.Fatalf("parse expires %q: %v", expires, err)
	}

	toSign := "PUT\n\nimage/png\n" + expires + "\n/agrolink-media/" + object
	verifySignature(t, key, toSign, values)
}

func TestSignedReadURLProducesVerifiableGetSignature(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := signingClient(key)

	object := "requests/farmer-1/upload-2/corn.jpg"
	urlStr, err := client.SignedReadURL("agrolink-media", object, 10*time.Minute)
	if err != nil {
		t.Fatalf("SignedReadURL: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed read url: %v", err)
	}
	values := parsed.Query()
	expires := values.Get("Expires")
	if expires == "" {
		t.Fatal("Expires missing")
	}

	toSign := "GET\n\n\n" + expires + "\n/agrolink-media/" + object
	verifySignature(t, key, toSign, values)
}

func TestSignedURLInputValidation(t *testing.T) {
	t.Parallel()

	client := signingClient(mustGenerateKey(t))

	cases := []struct {
		name        string
		bucket      string
		object      string
		contentType string
		expires     time.Duration
		clearBucket bool
	}{
		{name: "missing bucket", object: "object", contentType: "image/png", expires: time.Minute, clearBucket: true},
		{name: "missing object", bucket: "agrolink-media", contentType: "image/png", expires: time.Minute},
		{name: "missing content type", bucket: "agrolink-media", object: "object", expires: time.Minute},
		{name: "negative ttl", bucket: "agrolink-media", object: "object", contentType: "image/png", expires: -time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := client.defaultBucket
			if tc.clearBucket {
				client.defaultBucket = ""
			}
			defer func() { client.defaultBucket = orig }()

			if _, err := client.SignedURL(tc.bucket, tc.object, tc.contentType, tc.expires); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}

	metadataOnly := &Client{defaultBucket: "agrolink-media"}
	if _, err := metadataOnly.SignedURL("", "object", "image/png", time.Minute); err == nil {
		t.Fatal("expected error without service account credentials")
	}
}

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func deleteTestClient(t *testing.T, status int, sawDelete *bool) *Client {
	t.Helper()
	return &Client{
		defaultBucket: "agrolink-media",
		tokenSource: &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
			return "token", time.Now().Add(time.Hour), nil
		}},
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
			if req.Method != http.MethodDelete {
				t.Fatalf("expected DELETE, got %s", req.Method)
			}
			if req.Header.Get("Authorization") != "Bearer token" {
				t.Fatalf("unexpected auth header %q", req.Header.Get("Authorization"))
			}
			if sawDelete != nil {
				*sawDelete = true
			}
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     http.Header{},
			}
		})},
	}
}

func TestDeleteObjectSuccess(t *testing.T) {
	t.Parallel()

	var sawDelete bool
	client := deleteTestClient(t, http.StatusNoContent, &sawDelete)

	if err := client.DeleteObject(context.Background(), "agrolink-media", "requests/farmer-1/upload-1/wheat.png"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if !sawDelete {
		t.Fatal("expected DELETE request")
	}
}

func TestDeleteObjectToleratesNotFound(t *testing.T) {
	t.Parallel()

	client := deleteTestClient(t, http.StatusNotFound, nil)
	if err := client.DeleteObject(context.Background(), "agrolink-media", "requests/gone.png"); err != nil {
		t.Fatalf("missing object should not error: %v", err)
	}
}

func TestDeleteObjectSurfacesServerError(t *testing.T) {
	t.Parallel()

	client := deleteTestClient(t, http.StatusInternalServerError, nil)
	if err := client.DeleteObject(context.Background(), "agrolink-media", "requests/broken.png"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	t.Parallel()

	calls := 0
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "token-" + strconv.Itoa(calls), time.Now().Add(time.Hour), nil
	}}

	for i := 0; i < 3; i++ {
		token, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if token != "token-1" {
			t.Fatalf("expected cached token, got %s", token)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
}
