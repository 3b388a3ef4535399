package readsb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client fetches aircraft snapshots from one backend.
type Client struct {
	url    string
	http   *http.Client
	decode func([]byte) (*AircraftsUpdate, error)
}

// NewProtoClient reads the protobuf snapshot of a readsb-proto backend at hostport.
func NewProtoClient(hostport string, hc *http.Client) *Client {
	return &Client{
		url:    "http://" + hostport + "/radar/data/aircraft.pb",
		http:   httpClient(hc),
		decode: DecodeAircraftsUpdate,
	}
}

// NewJSONClient reads <base>/data/aircraft.json.
func NewJSONClient(base string, hc *http.Client) *Client {
	return &Client{
		url:    strings.TrimSuffix(base, "/") + "/data/aircraft.json",
		http:   httpClient(hc),
		decode: DecodeAircraftJSON,
	}
}

func httpClient(hc *http.Client) *http.Client {
	if hc == nil {
		return http.DefaultClient
	}
	return hc
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) GetAircraft(ctx context.Context) (*AircraftsUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("get %s: unexpected status %s", c.url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.url, err)
	}
	return c.decode(body)
}
