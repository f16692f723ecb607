package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/venyaka/Bank-REST/internal/config"
	"github.com/sirupsen/logrus"
)

// ErrKeyUnavailable means the secret store could not supply the encryption
// key. This is a fatal configuration problem: PAN cryptography cannot work
// without it and the fetch is not retried silently.
var ErrKeyUnavailable = errors.New("encryption key unavailable")

// Client retrieves the card encryption key from HashiCorp Vault (KV v2).
// The key is fetched once and cached for the process lifetime; the first
// fetch is serialized so concurrent first callers share one request.
type Client struct {
	addr       string
	token      string
	secretPath string
	client     *http.Client
	log        *logrus.Logger

	mu        sync.Mutex
	cachedKey []byte
}

// NewClient initializes a new Vault client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		addr:       cfg.VaultAddr,
		token:      cfg.VaultToken,
		secretPath: cfg.VaultSecretPath,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// kvResponse mirrors the KV v2 read payload: {"data": {"data": {"key": ...}}}.
type kvResponse struct {
	Data struct {
		Data struct {
			Key string `json:"key"`
		} `json:"data"`
	} `json:"data"`
}

// CurrentKey returns the cached key material, fetching it on first use.
// Only a successful fetch is cached; failures are returned to the caller
// wrapped in ErrKeyUnavailable.
func (c *Client) CurrentKey() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedKey != nil {
		return c.cachedKey, nil
	}

	key, err := c.fetchKey()
	if err != nil {
		c.log.Errorf("Failed to fetch encryption key from vault: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	c.cachedKey = key
	c.log.Info("Encryption key fetched from vault and cached")
	return c.cachedKey, nil
}

func (c *Client) fetchKey() ([]byte, error) {
	url := fmt.Sprintf("%s/v1/%s", c.addr, c.secretPath)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body kvResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if body.Data.Data.Key == "" {
		return nil, fmt.Errorf("response contains no key")
	}

	return []byte(body.Data.Data.Key), nil
}
