package session

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// IPStackClient resolves an IP address to a city via the ipstack API.
type IPStackClient struct {
	baseURL   string
	accessKey string
	client    *http.Client
	log       *logrus.Logger
}

// NewIPStackClient initializes a new ipstack client
func NewIPStackClient(baseURL, accessKey string, log *logrus.Logger) *IPStackClient {
	return &IPStackClient{
		baseURL:   baseURL,
		accessKey: accessKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type ipStackResponse struct {
	City string `json:"city"`
}

// CityForIP looks up the city for an IP address. Loopback and private
// addresses resolve to "Local" without a remote call.
func (c *IPStackClient) CityForIP(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid ip address: %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return "Local", nil
	}

	reqURL := fmt.Sprintf("%s/%s?access_key=%s", c.baseURL, ip, url.QueryEscape(c.accessKey))
	resp, err := c.client.Get(reqURL)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body ipStackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Debugf("ipstack resolved %s to %q", ip, body.City)
	return body.City, nil
}
