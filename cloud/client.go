// Package cloud posts readings to a per-profile time-series channel.
//
// The channel write API takes an HTTP GET with key/value pairs: the channel
// write key, three numeric fields (temperature C, raw soil count, humidity
// %RH) and a free-text status. The response status code is the result; 200
// means the reading was accepted.
package cloud

import (
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"

	"github.com/gr-butler/plantmon/config"
)

type update struct {
	WriteKey    string  `url:"api_key"`
	ChannelID   uint64  `url:"channel_id"`
	Temperature float64 `url:"field1"`
	SoilRaw     int     `url:"field2"`
	Humidity    float64 `url:"field3"`
	Status      string  `url:"status,omitempty"`
}

type Client struct {
	base      string
	http      *http.Client
	clock     clockwork.Clock
	attempts  int
	delay     time.Duration
	connected bool
}

func NewClient(cfg config.CloudConfig, clock clockwork.Clock) *Client {
	return &Client{
		base:     cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		clock:    clock,
		attempts: cfg.ConnectAttempts,
		delay:    cfg.ConnectDelay,
	}
}

// Connect checks that the endpoint is reachable. It is idempotent: once
// connected it returns immediately. Otherwise it probes with bounded
// retries and gives up non-fatally; the next post attempt retries.
func (c *Client) Connect() bool {
	if c.connected {
		return true
	}
	for i := 0; i < c.attempts; i++ {
		if c.probe() {
			logger.Info("Cloud endpoint reachable")
			c.connected = true
			return true
		}
		c.clock.Sleep(c.delay)
	}
	logger.Errorf("Cloud endpoint unreachable after %v attempts", c.attempts)
	return false
}

func (c *Client) Connected() bool {
	return c.connected
}

func (c *Client) probe() bool {
	req, err := http.NewRequest(http.MethodHead, c.base, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	// any answer means the network path is up
	return true
}

// Post uploads one reading to the profile's channel and returns the HTTP
// status code. The caller logs failures and waits for the next scheduled
// tick; there is no retry here. A transport failure marks the client
// disconnected so the next cycle re-probes.
func (c *Client) Post(p config.Profile, tempC float64, soilRaw int, humidity float64, status string) (int, error) {
	u := update{
		WriteKey:    p.WriteKey,
		ChannelID:   p.ChannelID,
		Temperature: tempC,
		SoilRaw:     soilRaw,
		Humidity:    humidity,
		Status:      status,
	}
	vals, _ := query.Values(u)

	resp, err := c.http.Get(c.base + "/update?" + vals.Encode())
	if err != nil {
		c.connected = false
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
