package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/energygoal/internal/config"
	"github.com/jgoulah/energygoal/internal/widget"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ErrSlugCollision is returned when two sources would share a topic and entity
var ErrSlugCollision = errors.New("source name collides with another source")

// Publisher pushes widget status to Home Assistant over MQTT and/or the HTTP API
type Publisher struct {
	client       mqtt.Client
	topicPrefix  string
	haConfig     config.HAConfig
	entityPrefix string
	httpClient   *http.Client
	logger       *slog.Logger

	mu     sync.Mutex
	owners map[string]string // slug -> source
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	haCfg := cfg.HomeAssistant
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	var client mqtt.Client
	mqttCfg := cfg.MQTT
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		// Configure MQTT client options
		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("energygoal")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		// Create and connect client
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return newPublisher(client, cfg, logger), nil
}

func newPublisher(client mqtt.Client, cfg *config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:       client,
		topicPrefix:  cfg.GetTopicPrefix(),
		haConfig:     cfg.HomeAssistant,
		entityPrefix: cfg.GetEntityPrefix(),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		owners:       make(map[string]string),
	}
}

// Enabled reports whether any publishing target is configured
func (p *Publisher) Enabled() bool {
	return p.client != nil || p.haConfig.Enabled
}

// StatePayload is the status of one source's widget
type StatePayload struct {
	Source    string `json:"source"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	Actual    int    `json:"actual_kwh"`
	Goal      int    `json:"goal_kwh"`
	Warning   int    `json:"warning_kwh"`
	Caption   string `json:"caption"`
	LastCheck string `json:"last_check"`
}

// HAPayload matches the Home Assistant state API request body
type HAPayload struct {
	State      string       `json:"state"`
	Attributes StatePayload `json:"attributes"`
}

func payloadFor(res *widget.Result) StatePayload {
	return StatePayload{
		Source:    res.Record.Source,
		Status:    res.Status.String(),
		Color:     res.Status.Color(),
		Actual:    res.Record.Actual,
		Goal:      res.Record.Goal,
		Warning:   res.Record.Warning,
		Caption:   res.Caption,
		LastCheck: res.Record.Timestamp.Format(time.RFC3339),
	}
}

// Publish sends a rendered widget's status to every enabled target. Source
// names map to topics and entity ids by slug, so a source whose slug was
// already published for a different source is rejected.
func (p *Publisher) Publish(ctx context.Context, res *widget.Result) error {
	if !p.Enabled() {
		return fmt.Errorf("no publishing target is enabled in config")
	}
	if err := p.claim(res.Record.Source); err != nil {
		return err
	}

	payload := payloadFor(res)

	if p.client != nil {
		if err := p.publishMQTT(payload); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(ctx, payload); err != nil {
			return err
		}
	}

	p.logger.Debug("published widget status", "source", payload.Source, "status", payload.Status)
	return nil
}

// Topic returns the retained state topic for a source
func (p *Publisher) Topic(source string) string {
	return fmt.Sprintf("%s/%s/state", p.topicPrefix, slug(source))
}

// EntityID returns the Home Assistant entity for a source
func (p *Publisher) EntityID(source string) string {
	return p.entityPrefix + slug(source)
}

func (p *Publisher) publishMQTT(payload StatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(p.Topic(payload.Source), 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to MQTT: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to MQTT: %w", err)
	}
	return nil
}

func (p *Publisher) publishHA(ctx context.Context, payload StatePayload) error {
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimSuffix(p.haConfig.URL, "/"), p.EntityID(payload.Source))

	body, err := json.Marshal(HAPayload{State: payload.Status, Attributes: payload})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	// Home Assistant answers 201 for a new entity and 200 for an update
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func (p *Publisher) claim(source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := slug(source)
	if owner, ok := p.owners[key]; ok && owner != source {
		return fmt.Errorf("%q and %q both publish as %q: %w", owner, source, key, ErrSlugCollision)
	}
	p.owners[key] = source
	return nil
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
