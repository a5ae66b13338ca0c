package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	scope         = "https://www.googleapis.com/auth/devstorage.read_write"
	storageHost   = "https://storage.googleapis.com"
	pingTimeout   = 5 * time.Second
	metadataToken = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
)

// Client talks to Cloud Storage over its JSON and XML APIs. Signed URLs
// require service account credentials; token-based calls also work on GCE
// metadata credentials.
type Client struct {
	httpClient     *http.Client
	defaultBucket  string
	tokenSource    *tokenSource
	serviceAccount *serviceAccountInfo
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type serviceAccountInfo struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	client := &Client{
		httpClient:    httpClient,
		defaultBucket: cfg.BucketName,
	}

	switch {
	case gcp.CredentialsJSON != "":
		if err := client.loadServiceAccount(gcp.CredentialsJSON); err != nil {
			return nil, err
		}
	case gcp.ApplicationCredentials != "":
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		if err := client.loadServiceAccount(string(raw)); err != nil {
			return nil, err
		}
	default:
		// Running on GCE; metadata tokens work but URL signing does not.
		client.tokenSource = &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
			return fetchMetadataToken(ctx, httpClient)
		}}
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) loadServiceAccount(jsonCreds string) error {
	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal([]byte(jsonCreds), &creds); err != nil {
		return fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return errors.New("invalid service account credentials")
	}

	priv, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return err
	}

	tokenURI := creds.TokenURI
	if tokenURI == "" {
		tokenURI = tokenEndpoint
	}

	c.serviceAccount = &serviceAccountInfo{clientEmail: creds.ClientEmail, privateKey: priv}
	c.tokenSource = &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
		return fetchServiceAccountToken(ctx, c.httpClient, creds.ClientEmail, priv, tokenURI)
	}}
	return nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	return nil
}

// Ping lists at most one object from the default bucket, which verifies
// both credentials and bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", storageHost, url.PathEscape(c.defaultBucket))
	resp, err := c.authorizedDo(ctx, http.MethodGet, u)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs object check failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs object check failed: %s", resp.Status)
	}
	return nil
}

// SignedURL returns a V2 signed PUT URL binding the object to the given
// content type. The client must upload with exactly that Content-Type
// header or the signature check fails.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required for signed uploads")
	}
	return c.signURL(http.MethodPut, bucket, object, contentType, expires)
}

// SignedReadURL returns a V2 signed GET URL for a private object.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return c.signURL(http.MethodGet, bucket, object, "", expires)
}

func (c *Client) signURL(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil {
		return "", errors.New("url signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if object == "" {
		return "", errors.New("object is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiresAt := strconv.FormatInt(time.Now().Add(expires).Unix(), 10)
	toSign := method + "\n\n" + contentType + "\n" + expiresAt + "\n/" + bucket + "/" + object

	hash := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	query.Set("Expires", expiresAt)
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))

	return fmt.Sprintf("%s/%s/%s?%s", storageHost, bucket, object, query.Encode()), nil
}

// DeleteObject removes one object. A missing object is not an error so
// cleanup jobs can retry safely.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" || object == "" {
		return errors.New("bucket and object are required")
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", storageHost, url.PathEscape(bucket), url.PathEscape(object))
	resp, err := c.authorizedDo(ctx, http.MethodDelete, u)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}
}

func (c *Client) authorizedDo(ctx context.Context, method, u string) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  func(context.Context) (string, time.Time, error)
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Until(t.expiry) > time.Minute {
		return t.token, nil
	}

	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiry = expiry
	return token, nil
}

func fetchServiceAccountToken(ctx context.Context, client *http.Client, email string, key *rsa.PrivateKey, tokenURI string) (string, time.Time, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	now := time.Now()
	claims := map[string]any{
		"iss":   email,
		"scope": scope,
		"aud":   tokenURI,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	unsigned := header + "." + base64.RawURLEncoding.EncodeToString(payloadBytes)

	hash := sha256.Sum256([]byte(unsigned))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		return "", time.Time{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", unsigned+"."+base64.RawURLEncoding.EncodeToString(signature))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %s", resp.Status)
	}
	return decodeTokenResponse(resp.Body)
}

func fetchMetadataToken(ctx context.Context, client *http.Client) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataToken, nil)
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("metadata token request returned %s", resp.Status)
	}
	return decodeTokenResponse(resp.Body)
}

func decodeTokenResponse(body io.Reader) (string, time.Time, error) {
	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, err
	}
	if tokenResp.AccessToken == "" {
		return "", time.Time{}, errors.New("token response missing access_token")
	}
	return tokenResp.AccessToken, time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second), nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}
