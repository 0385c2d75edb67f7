// Package mqtt implements the message transport between the allocation
// controller and the other simulation participants over an MQTT broker.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridsim/chargealloc/core/logger"
	"github.com/gridsim/chargealloc/core/model"
)

// Topics maps every message kind to its broker topic.
type Topics struct {
	Metadata   string `json:"metadata"`
	Capacity   string `json:"capacity"`
	Target     string `json:"target"`
	State      string `json:"state"`
	Epoch      string `json:"epoch"`
	Assignment string `json:"assignment"`
	Warning    string `json:"warning"`
	Error      string `json:"error"`
	Ready      string `json:"ready"`
}

// SetDefaults fills in the default topic names.
func (t *Topics) SetDefaults() {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&t.Metadata, "charge/vehicle/metadata")
	def(&t.Capacity, "charge/station/capacity")
	def(&t.Target, "charge/vehicle/target")
	def(&t.State, "charge/vehicle/state")
	def(&t.Epoch, "charge/epoch")
	def(&t.Assignment, "charge/assignment")
	def(&t.Warning, "charge/warning")
	def(&t.Error, "charge/error")
	def(&t.Ready, "charge/ready")
}

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	QoS        byte   `json:"qos"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	Topics     Topics `json:"topics"`
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	ca, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("load ca bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("parse ca bundle")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Transport connects the controller to the broker: inbound reports and epoch
// announcements surface on channels, outbound results implement bus.Publisher.
type Transport struct {
	cli     paho.Client
	cfg     Config
	log     logger.Logger
	reports chan model.Report
	epochs  chan model.Epoch
}

// NewTransport connects to the broker and subscribes to the inbound topics.
func NewTransport(cfg Config, log logger.Logger) (*Transport, error) {
	cfg.Topics.SetDefaults()
	t := &Transport{
		cfg:     cfg,
		log:     log,
		reports: make(chan model.Report, 128),
		epochs:  make(chan model.Epoch, 8),
	}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		t.subscribeAll(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	t.cli = cli
	return t, nil
}

func (t *Transport) subscribeAll(c paho.Client) {
	topics := t.cfg.Topics
	for _, topic := range []string{topics.Metadata, topics.Capacity, topics.Target, topics.State} {
		if token := c.Subscribe(topic, t.cfg.QoS, t.onReport); token.Wait() && token.Error() != nil {
			t.log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	if token := c.Subscribe(topics.Epoch, t.cfg.QoS, t.onEpoch); token.Wait() && token.Error() != nil {
		t.log.Errorf("subscribe %s: %v", topics.Epoch, token.Error())
	}
}

func (t *Transport) onReport(_ paho.Client, msg paho.Message) {
	env, err := DecodeEnvelope(msg.Payload())
	if err != nil {
		t.log.Errorf("drop message on %s: %v", msg.Topic(), err)
		return
	}
	rep, err := DecodeReport(env)
	if err != nil {
		t.log.Errorf("drop message on %s: %v", msg.Topic(), err)
		return
	}
	t.reports <- rep
}

func (t *Transport) onEpoch(_ paho.Client, msg paho.Message) {
	env, err := DecodeEnvelope(msg.Payload())
	if err != nil {
		t.log.Errorf("drop epoch message: %v", err)
		return
	}
	ep, err := DecodeEpoch(env)
	if err != nil {
		t.log.Errorf("drop epoch message: %v", err)
		return
	}
	t.epochs <- ep
}

// Reports returns the inbound participant report stream.
func (t *Transport) Reports() <-chan model.Report { return t.reports }

// Epochs returns the epoch announcement stream.
func (t *Transport) Epochs() <-chan model.Epoch { return t.epochs }

func (t *Transport) publish(topic, msgType string, epoch int64, payload any) error {
	env, err := NewEnvelope(msgType, t.cfg.ClientID, epoch, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	if token := t.cli.Publish(topic, t.cfg.QoS, false, raw); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", msgType, token.Error())
	}
	return nil
}

// PublishAssignment implements bus.Publisher.
func (t *Transport) PublishAssignment(epoch int64, a model.PowerAssignment) error {
	return t.publish(t.cfg.Topics.Assignment, TypePowerAssignment, epoch, PowerAssignmentPayload{
		StationID: a.StationID,
		VehicleID: a.VehicleID,
		PowerKW:   a.PowerKW,
	})
}

// PublishWarning implements bus.Publisher.
func (t *Transport) PublishWarning(epoch int64, w model.FeasibilityWarning) error {
	return t.publish(t.cfg.Topics.Warning, TypeFeasibilityWarning, epoch, FeasibilityWarningPayload{
		AvailablePct: w.AvailablePct,
		Affected:     w.Affected,
	})
}

// PublishError implements bus.Publisher.
func (t *Transport) PublishError(epoch int64, reason string) error {
	return t.publish(t.cfg.Topics.Error, TypeError, epoch, ErrorPayload{Reason: reason})
}

// PublishReady implements bus.Publisher.
func (t *Transport) PublishReady(epoch int64) error {
	return t.publish(t.cfg.Topics.Ready, TypeReady, epoch, struct{}{})
}

// Close disconnects from the broker.
func (t *Transport) Close() {
	if t.cli != nil && t.cli.IsConnected() {
		t.cli.Disconnect(250)
	}
}
