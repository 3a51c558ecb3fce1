// Package pub publishes readings to a local MQTT broker for anything else
// on the network that wants them. Optional; the cloud channel is the
// primary sink.
package pub

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Reading struct {
	Profile     string    `json:"profile"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	SoilRaw     int       `json:"soil_raw"`
	Status      string    `json:"status"`
	Time        time.Time `json:"time"`
}

type Publisher struct {
	client mqtt.Client
	topic  string
}

func New(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) Publish(r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
