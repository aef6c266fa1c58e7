// Package device is the HTTP client for the digital paper device's REST
// API. The device speaks HTTPS with a self-signed certificate and
// authenticates registered clients by having them sign a nonce with the
// private key issued at pairing time.
package device

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
)

const defaultTimeout = 30 * time.Second

// Config holds the connection parameters for one paired device.
type Config struct {
	Address  string // base URL, e.g. https://192.168.1.101:8443
	ClientID string // client id issued by the device at pairing time
	Key      *rsa.PrivateKey
	Insecure bool          // accept the device's self-signed certificate
	Timeout  time.Duration // zero means defaultTimeout
}

// Client talks to one device. The session cookie obtained by Authenticate
// lives in the client's cookie jar; ListEntries re-authenticates once on a
// 401 so callers normally never call Authenticate themselves.
type Client struct {
	baseURL  string
	clientID string
	key      *rsa.PrivateKey
	http     *http.Client
	logger   *slog.Logger
}

// New creates a device client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("device address is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("device client id is required")
	}
	if cfg.Key == nil {
		return nil, fmt.Errorf("device private key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL:  cfg.Address,
		clientID: cfg.ClientID,
		key:      cfg.Key,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		logger: logger,
	}, nil
}

// Authenticate performs the nonce-signature exchange and stores the
// session cookie the device returns.
func (c *Client) Authenticate(ctx context.Context) error {
	nonce, err := c.fetchNonce(ctx)
	if err != nil {
		return err
	}

	digest := sha256.Sum256([]byte(nonce))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA256, digest[:])
	if err != nil {
		return &domain.DeviceError{Op: "authenticate", Err: fmt.Errorf("sign nonce: %w", err)}
	}

	body, err := json.Marshal(map[string]string{
		"client_id":    c.clientID,
		"nonce_signed": base64.StdEncoding.EncodeToString(signature),
	})
	if err != nil {
		return &domain.DeviceError{Op: "authenticate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return &domain.DeviceError{Op: "authenticate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.DeviceError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &domain.DeviceError{Op: "authenticate", Status: resp.StatusCode}
	}

	c.logger.Debug("device session established", "client_id", c.clientID)
	return nil
}

func (c *Client) fetchNonce(ctx context.Context) (string, error) {
	u := c.baseURL + "/auth/nonce/" + url.PathEscape(c.clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &domain.DeviceError{Op: "authenticate", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.DeviceError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.DeviceError{Op: "authenticate", Status: resp.StatusCode}
	}

	var payload struct {
		Nonce string `json:"nonce"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &domain.DeviceError{Op: "authenticate", Err: fmt.Errorf("decode nonce: %w", err)}
	}
	if payload.Nonce == "" {
		return "", &domain.DeviceError{Op: "authenticate", Err: fmt.Errorf("device returned an empty nonce")}
	}
	return payload.Nonce, nil
}

// ListEntries fetches the complete flat listing of files and folders.
func (c *Client) ListEntries(ctx context.Context) ([]models.Record, error) {
	records, status, err := c.listEntries(ctx)
	if err == nil && status == http.StatusUnauthorized {
		// Session expired; one re-auth then retry.
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		records, status, err = c.listEntries(ctx)
	}
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &domain.DeviceError{Op: "list entries", Status: status}
	}

	c.logger.Debug("device listing fetched", "entries", len(records))
	return records, nil
}

func (c *Client) listEntries(ctx context.Context) ([]models.Record, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents2?entry_type=all", nil)
	if err != nil {
		return nil, 0, &domain.DeviceError{Op: "list entries", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &domain.DeviceError{Op: "list entries", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var payload struct {
		EntryList []models.Record `json:"entry_list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, &domain.DeviceError{Op: "list entries", Err: fmt.Errorf("decode listing: %w", err)}
	}
	return payload.EntryList, resp.StatusCode, nil
}

// LoadPrivateKey reads the PEM-encoded RSA key saved during pairing.
// Both PKCS#1 and PKCS#8 encodings are seen in the wild.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("device key %s: not PEM-encoded", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse device key %s: %w", path, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("device key %s: not an RSA key", path)
	}
	return key, nil
}
