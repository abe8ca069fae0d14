package emailalerts

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// message is a minimal representation of one mailbox entry. RawMessage
// holds the full RFC822 bytes, fetched with BODY.PEEK[] so the fetch
// itself never sets \Seen.
type message struct {
	UID        imap.UID
	From       string
	Subject    string
	Date       time.Time
	RawMessage []byte
}

func dialAndLogin(ctx context.Context, addr, username, password string) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}

	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %v", errLoginRejected, err)
	}
	return c, nil
}

// errLoginRejected separates a refused login from transport failures, so
// callers can stop retrying with credentials the server will not accept.
var errLoginRejected = errors.New("imap login rejected")

func isLoginRejected(err error) bool {
	return errors.Is(err, errLoginRejected)
}

func selectMailbox(c *imapclient.Client, mailbox string) error {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return fmt.Errorf("imap select %q: %w", mailbox, err)
	}
	return nil
}

// fetchUnseen pulls up to max unseen messages by UID, newest first,
// with envelope and full raw RFC822 bytes.
func fetchUnseen(ctx context.Context, c *imapclient.Client, max int) ([]message, error) {
	if max <= 0 {
		max = 50
	}

	// Alerts older than this are stale; don't even consider them.
	cutoff := time.Now().AddDate(0, -3, 0)

	searchData, err := c.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Newest first, capped.
	slices.Reverse(uids)
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}

	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]message, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}

		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		var m message
		m.UID = buf.UID
		if buf.Envelope != nil {
			m.Subject = buf.Envelope.Subject
			m.Date = buf.Envelope.Date
			m.From = joinAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			m.RawMessage = append([]byte(nil), b...)
		}

		if (m.Subject == "" || m.From == "" || m.Date.IsZero()) && len(m.RawMessage) > 0 {
			subj, from, date := parseHeadersFallback(m.RawMessage)
			if m.Subject == "" {
				m.Subject = subj
			}
			if m.From == "" {
				m.From = from
			}
			if m.Date.IsZero() {
				m.Date = date
			}
		}

		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// markSeen sets \Seen for a UID set. Store returns a command that is
// closed, not waited, to get the final status.
func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func logoutAndClose(c *imapclient.Client) {
	if c == nil {
		return
	}
	if err := c.Logout().Wait(); err != nil {
		log.Printf("[emailalerts] imap logout: %v", err)
	}
	_ = c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	var b strings.Builder
	for i := range addrs {
		best := strings.TrimSpace(addrs[i].Addr())
		if best == "" {
			best = strings.TrimSpace(addrs[i].Name)
		}
		if best == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(best)
	}
	return b.String()
}

// parseHeadersFallback is a net/mail safety net for servers that return
// an empty envelope. It does not handle every RFC2047 form.
func parseHeadersFallback(raw []byte) (subject, from string, date time.Time) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", "", time.Time{}
	}
	subject = msg.Header.Get("Subject")
	from = msg.Header.Get("From")
	date, _ = msg.Header.Date()
	return subject, from, date
}
