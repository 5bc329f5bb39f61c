package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/milkfeed/internal/model"
)

// MailboxSource turns unseen messages in an IMAP mailbox into
// notifications. Alerts mailed by the backend (or by plant staff) show
// up in the inbox like websocket pushes. Delivered messages are flagged
// \Seen so they are not delivered twice.
type MailboxSource struct {
	host         string
	port         string
	username     string
	password     string
	mailbox      string
	tls          bool
	pollInterval time.Duration
}

// NewMailboxSource creates an IMAP-backed source from config and the
// password loaded from the keyring.
func NewMailboxSource(cfg model.MailboxConfig, password string) *MailboxSource {
	interval := time.Duration(cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return &MailboxSource{
		host:         cfg.Host,
		port:         cfg.Port,
		username:     cfg.Username,
		password:     password,
		mailbox:      mailbox,
		tls:          cfg.TLS,
		pollInterval: interval,
	}
}

// Name returns the transport name.
func (s *MailboxSource) Name() string { return model.TransportMailbox }

// Connect logs in and selects the mailbox.
func (s *MailboxSource) Connect(_ context.Context) (Conn, error) {
	addr := s.host + ":" + s.port

	var client *imapclient.Client
	var err error
	if s.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	return s.open(client)
}

// open logs in on an established client and selects the mailbox.
func (s *MailboxSource) open(client *imapclient.Client) (*mailboxConn, error) {
	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("logging in to IMAP as %s: %w", s.username, err)
	}

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	return &mailboxConn{
		client:       client,
		pollInterval: s.pollInterval,
		skipped:      make(map[imap.UID]bool),
	}, nil
}

// mailItem is a queued message waiting to be handed to the listener.
type mailItem struct {
	uid     imap.UID
	payload []byte
}

type mailboxConn struct {
	client       *imapclient.Client
	pollInterval time.Duration
	pending      []mailItem

	// skipped holds unseen messages that carry no usable text. They are
	// left unflagged and not logged again.
	skipped map[imap.UID]bool
}

// Read returns the next unseen message as a payload, polling the
// mailbox while there is nothing pending. A message is flagged \Seen
// only when it is returned.
func (c *mailboxConn) Read(ctx context.Context) ([]byte, error) {
	for len(c.pending) == 0 {
		if err := c.poll(); err != nil {
			return nil, err
		}
		if len(c.pending) > 0 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	next := c.pending[0]
	if err := c.markSeen(next.uid); err != nil {
		return nil, err
	}
	c.pending = c.pending[1:]
	return next.payload, nil
}

func (c *mailboxConn) markSeen(uid imap.UID) error {
	err := c.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("flagging message %d seen: %w", uid, err)
	}
	return nil
}

// poll fetches unseen messages in UID order and queues those with text.
func (c *mailboxConn) poll() error {
	if err := c.client.Noop().Wait(); err != nil {
		return fmt.Errorf("refreshing mailbox: %w", err)
	}

	searchData, err := c.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching unseen messages: %w", err)
	}

	var uids []imap.UID
	for _, uid := range searchData.AllUIDs() {
		if !c.skipped[uid] {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchCmd := c.client.Fetch(uidSet, &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			log.Printf("mailbox feed: skipping message %d: %v", msg.SeqNum, err)
			continue
		}

		subject := ""
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
		}
		text := MailText(subject, buf.FindBodySection(bodySection))
		if text == "" {
			log.Printf("mailbox feed: skipping message %d: no subject or plain-text body", buf.UID)
			c.skipped[buf.UID] = true
			continue
		}

		payload, err := Encode(Payload{Message: text, Kind: model.KindInfo})
		if err != nil {
			log.Printf("mailbox feed: skipping message %d: %v", buf.UID, err)
			c.skipped[buf.UID] = true
			continue
		}
		c.pending = append(c.pending, mailItem{uid: buf.UID, payload: payload})
	}
	if err := fetchCmd.Close(); err != nil {
		return fmt.Errorf("fetching unseen messages: %w", err)
	}
	return nil
}

// Close logs out and closes the IMAP connection.
func (c *mailboxConn) Close() error {
	_ = c.client.Logout().Wait()
	return c.client.Close()
}

// MailText picks the notification text for a mail: the subject, or the
// first non-blank line of the plain-text body when the subject is empty.
func MailText(subject string, raw []byte) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	if len(raw) == 0 {
		return ""
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return firstLine(string(raw))
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		if line := firstLine(string(body)); line != "" {
			return line
		}
	}
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
