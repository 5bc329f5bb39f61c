package app

import (
	"fmt"
	"log"

	"github.com/nhle/milkfeed/internal/credential"
	"github.com/nhle/milkfeed/internal/feed"
	"github.com/nhle/milkfeed/internal/model"
)

// SourceFactory builds the live source for a feed configuration.
type SourceFactory func(cfg model.FeedConfig) (feed.Source, error)

// NewSource builds the configured transport. Credentials are loaded from
// the system keyring.
func NewSource(cfg model.FeedConfig) (feed.Source, error) {
	switch cfg.Transport {
	case model.TransportWebSocket, "":
		token, err := credential.Lookup(credential.FeedToken)
		if err != nil {
			log.Printf("feed token unavailable, connecting without it: %v", err)
		}
		addr := feed.WebSocketURL(cfg.Host, cfg.Path, cfg.Secure)
		return feed.NewWebSocketSource(addr, token), nil

	case model.TransportRedis:
		return feed.NewRedisSource(cfg.Redis.Addr, cfg.Redis.Channel), nil

	case model.TransportAMQP:
		return feed.NewAMQPSource(cfg.AMQP.URL, cfg.AMQP.Queue), nil

	case model.TransportMailbox:
		password, err := credential.Get(credential.MailboxPassword)
		if err != nil {
			return nil, fmt.Errorf("mailbox password not found: %w", err)
		}
		return feed.NewMailboxSource(cfg.Mailbox, password), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// describeSource returns the address shown on the overview screen.
func describeSource(cfg model.FeedConfig) string {
	switch cfg.Transport {
	case model.TransportRedis:
		return fmt.Sprintf("redis %s #%s", cfg.Redis.Addr, cfg.Redis.Channel)
	case model.TransportAMQP:
		return fmt.Sprintf("amqp queue %s", cfg.AMQP.Queue)
	case model.TransportMailbox:
		return fmt.Sprintf("imap %s@%s/%s", cfg.Mailbox.Username, cfg.Mailbox.Host, cfg.Mailbox.Mailbox)
	default:
		return feed.WebSocketURL(cfg.Host, cfg.Path, cfg.Secure)
	}
}
