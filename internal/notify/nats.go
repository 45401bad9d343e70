package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/monitor"
)

// NATSConfig configures the JetStream dispatcher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// Defaults applied by NewNATSDispatcher for unset fields.
const (
	DefaultSubject = "larder.status.changed"
	DefaultStream  = "LARDER_EVENTS"
)

// NATSDispatcher publishes status-change events to a JetStream subject,
// where downstream notification plumbing (push delivery, digests) picks
// them up.
type NATSDispatcher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSDispatcher connects to NATS and ensures the event stream exists.
func NewNATSDispatcher(cfg NATSConfig) (*NATSDispatcher, error) {
	if cfg.URL == "" {
		return nil, ferrors.ValidationError("nats url is required").Build()
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "connect to nats").Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "create jetstream context").Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Ingredient status change events",
		Subjects:    []string{cfg.Subject},
	})
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "ensure event stream").Build()
	}

	slog.Info("NATS dispatcher initialized",
		slog.String("url", cfg.URL),
		logfields.Subject(cfg.Subject))

	return &NATSDispatcher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Dispatch publishes the event as JSON.
func (d *NATSDispatcher) Dispatch(ctx context.Context, evt monitor.StatusChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "marshal event").Build()
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := d.js.Publish(pubCtx, d.subject, data); err != nil {
		// Broker hiccups are worth a retry; see notify.Retrying.
		return ferrors.WrapError(err, ferrors.CategoryNotify, "publish event").
			WithContext("item_id", evt.ItemID).Retryable().Build()
	}

	slog.Debug("Published status change event",
		logfields.ItemID(evt.ItemID),
		logfields.ChangeType(evt.ChangeType.String()),
		logfields.Subject(d.subject))
	return nil
}

// Close closes the NATS connection.
func (d *NATSDispatcher) Close() error {
	if d.conn != nil {
		d.conn.Close()
	}
	return nil
}
