// Package mqtt publishes meter readings and Home Assistant discovery
// payloads to the bridge's broker.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ninjasstudio/amr-discover/internal/config"
)

const (
	connectTimeout      = 10 * time.Second
	disconnectQuiesceMs = 250
)

// Connect establishes a broker session with exponential backoff around
// the initial connect. The client disconnects when ctx is cancelled.
func Connect(ctx context.Context, cfg config.MQTTSettings) (paho.Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectTimeout

	var client paho.Client
	err := backoff.Retry(func() error {
		client = paho.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to broker %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	slog.Default().Info("connected to MQTT broker", "host", cfg.Host, "port", cfg.Port)

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectQuiesceMs)
	}()

	return client, nil
}
