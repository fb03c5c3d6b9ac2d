// nats.go publishes lifecycle events to NATS subjects of the form
// <prefix>.<kind>, e.g. sugicron.events.end.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// NATSConfig holds connection settings for the NATS hook.
type NATSConfig struct {
	Servers  string // comma-separated server URLs
	NKeySeed string // optional user seed (starts with SU)
	Subject  string // subject prefix
	Name     string // connection name shown on the server
}

// NATS publishes events on a core NATS connection.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// ConnectNATS dials the servers in cfg and returns a ready hook.
func ConnectNATS(cfg NATSConfig, logger *slog.Logger) (*NATS, error) {
	logger = logger.With(slog.String("component", "nats-hook"))

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.PingInterval(30 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("server", nc.ConnectedUrl()))
		}),
	}

	if cfg.NKeySeed != "" {
		opt, err := nkeyOption(cfg.NKeySeed)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	nc, err := nats.Connect(cfg.Servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.Info("NATS connected",
		slog.String("server", nc.ConnectedUrl()),
		slog.String("subject", cfg.Subject),
	)

	return &NATS{conn: nc, subject: cfg.Subject, logger: logger}, nil
}

// nkeyOption builds the nonce-signing auth option from a user seed.
func nkeyOption(seed string) (nats.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
	}
	return nats.Nkey(pub, kp.Sign), nil
}

// Subject returns the subject an event of kind k is published on.
func (n *NATS) Subject(k Kind) string {
	return subjectFor(n.subject, k)
}

func subjectFor(prefix string, k Kind) string {
	return prefix + "." + string(k)
}

// Notify publishes ev. Publishing is buffered by the client; the call does
// not wait for the server.
func (n *NATS) Notify(_ context.Context, ev Event) error {
	data, err := json.Marshal(NewPayload(ev))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := n.conn.Publish(n.Subject(ev.Kind), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Shutdown drains pending publishes and closes the connection.
func (n *NATS) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- n.conn.Drain()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		n.conn.Close()
		return ctx.Err()
	}
}
