package feed

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/milkfeed/internal/model"
)

const plainAlert = "From: plant@example.com\r\n" +
	"To: ops@example.com\r\n" +
	"Subject: \r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"\r\n" +
	"   Cooling unit 3 offline  \r\n" +
	"Check the compressor.\r\n"

func TestMailText(t *testing.T) {
	assert.Equal(t, "Quality hold on batch 77", MailText("  Quality hold on batch 77 ", []byte(plainAlert)))
	assert.Equal(t, "Cooling unit 3 offline", MailText("", []byte(plainAlert)))
	assert.Equal(t, "", MailText("", nil))
	assert.Equal(t, "", MailText("   ", []byte("Subject: x\r\nContent-Type: text/html\r\n\r\n<p>hi</p>\r\n")))
}

func TestNewMailboxSourceDefaults(t *testing.T) {
	src := NewMailboxSource(model.MailboxConfig{Host: "imap.example.com", Port: "993"}, "pw")
	assert.Equal(t, model.TransportMailbox, src.Name())
	assert.Equal(t, "INBOX", src.mailbox)
	assert.Equal(t, 60*time.Second, src.pollInterval)
}

// startMailServer serves an in-memory IMAP mailbox holding msgs and
// returns a connection opened by a MailboxSource.
func startMailServer(t *testing.T, msgs ...string) *mailboxConn {
	t.Helper()

	user := imapmemserver.NewUser("alerts", "secret")
	require.NoError(t, user.Create("INBOX", nil))
	for _, m := range msgs {
		_, err := user.Append("INBOX", bytes.NewReader([]byte(m)), &imap.AppendOptions{})
		require.NoError(t, err)
	}
	mem := imapmemserver.New()
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         imap.CapSet{imap.CapIMAP4rev1: {}, imap.CapIMAP4rev2: {}},
		InsecureAuth: true,
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	netConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	src := NewMailboxSource(model.MailboxConfig{Username: "alerts"}, "secret")
	src.pollInterval = 10 * time.Millisecond
	conn, err := src.open(imapclient.New(netConn, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func unseenUIDs(t *testing.T, c *mailboxConn) []imap.UID {
	t.Helper()
	data, err := c.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	require.NoError(t, err)
	return data.AllUIDs()
}

func TestMailboxFlagsOnlyDeliveredMessages(t *testing.T) {
	conn := startMailServer(t,
		"Subject: Quality hold on batch 77\r\n\r\nSee lab report.\r\n",
		"Subject: \r\nContent-Type: text/html\r\n\r\n<p>hi</p>\r\n",
		"Subject: Tank 2 cleaned\r\n\r\nDone.\r\n",
	)
	ctx := context.Background()

	raw, err := conn.Read(ctx)
	require.NoError(t, err)
	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Quality hold on batch 77", p.Message)
	assert.Equal(t, []imap.UID{2, 3}, unseenUIDs(t, conn), "queued message stays unseen until read")

	raw, err = conn.Read(ctx)
	require.NoError(t, err)
	p, err = Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Tank 2 cleaned", p.Message)
	assert.Equal(t, []imap.UID{2}, unseenUIDs(t, conn), "skipped message is not flagged")

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = conn.Read(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "skipped message is not delivered later")
}
