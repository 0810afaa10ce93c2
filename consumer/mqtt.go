// Package consumer bridges completed ResultFrames to downstream viewers:
// a compact JSON summary published over MQTT for broker-based consumers,
// and the 8-bit disparity display image streamed over WebSocket to a
// browser-based viewer (SPEC_FULL.md DOMAIN STACK).
package consumer

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/stereodpl/dpl/frame"
)

// MQTTConfig configures the broker connection and topic an MQTTPublisher
// publishes to.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
}

// resultSummary is the payload published per frame: enough to monitor
// pipeline health (frame cadence, tact time, per-frame error code) without
// shipping pixel data through a message broker.
type resultSummary struct {
	FrameNumber uint64  `json:"frame_number"`
	TactTimeMs  float64 `json:"tact_time_ms"`
	ErrorCode   int     `json:"error_code"`
}

func marshalSummary(rf *frame.ResultFrame) ([]byte, error) {
	s := resultSummary{
		FrameNumber: rf.Image.FrameNumber,
		TactTimeMs:  float64(rf.Result.TactTime) / float64(time.Millisecond),
		ErrorCode:   rf.Result.ErrorCode,
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("consumer: marshal result summary: %w", err)
	}
	return payload, nil
}

// MQTTPublisher publishes one JSON summary message per completed
// ResultFrame. Grounded directly on github.com/eclipse/paho.mqtt.golang's
// own client API (Options/NewClient/Connect/Publish): no example repo in
// the pack exercises this library beyond declaring it in a go.mod, so
// there is no existing call-site shape to imitate beyond the library's
// own documented usage (see DESIGN.md).
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqtt.Client
}

// NewMQTTPublisher constructs a publisher. Connect must be called before
// the first Publish.
func NewMQTTPublisher(cfg MQTTConfig) *MQTTPublisher {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	return &MQTTPublisher{cfg: cfg, client: mqtt.NewClient(opts)}
}

// Connect opens the broker connection, blocking until it succeeds or
// fails.
func (p *MQTTPublisher) Connect() error {
	tok := p.client.Connect()
	tok.Wait()
	return tok.Error()
}

// Publish sends rf's summary to the configured topic, blocking until the
// broker acknowledges (or the QoS-0 send completes).
func (p *MQTTPublisher) Publish(rf *frame.ResultFrame) error {
	payload, err := marshalSummary(rf)
	if err != nil {
		return err
	}
	tok := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	tok.Wait()
	return tok.Error()
}

// Close disconnects from the broker, waiting up to 250ms to flush
// in-flight publishes.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
