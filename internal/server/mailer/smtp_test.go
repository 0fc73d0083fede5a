package mailer

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelay is a minimal SMTP server accepting one message per connection.
type fakeRelay struct {
	ln   net.Listener
	mu   sync.Mutex
	data []string
	wg   sync.WaitGroup
}

func startFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := &fakeRelay{ln: ln}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			r.serve(conn)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		r.wg.Wait()
	})
	return r
}

func (r *fakeRelay) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	rd := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	reply("220 localhost ready")
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
			reply("250 ok")
		case cmd == "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				l, err := rd.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			r.mu.Lock()
			r.data = append(r.data, body.String())
			r.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (r *fakeRelay) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.data...)
}

func TestSMTPTransport_DeliversToRelay(t *testing.T) {
	relay := startFakeRelay(t)

	tr, err := NewSMTPTransport(SMTPConfig{Addr: relay.ln.Addr().String(), From: "no-reply@x.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, tr.Deliver(ctx, activationMessage("a@x.com", "http://api/activate/1")))

	msgs := relay.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "To: a@x.com")
	assert.Contains(t, msgs[0], "Subject: Activate your account")
	assert.Contains(t, msgs[0], "http://api/activate/1")
}

func TestSMTPTransport_RetriesTemporaryFailures(t *testing.T) {
	tr, err := NewSMTPTransport(SMTPConfig{Addr: "localhost:25", Attempts: 3})
	require.NoError(t, err)

	calls := 0
	tr.send = func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return &textproto.Error{Code: 451, Msg: "try later"}
		}
		return nil
	}

	require.NoError(t, tr.Deliver(context.Background(), resetConfirmationMessage("a@x.com")))
	assert.Equal(t, 3, calls)
}

func TestSMTPTransport_PermanentFailureNotRetried(t *testing.T) {
	tr, err := NewSMTPTransport(SMTPConfig{Addr: "localhost:25"})
	require.NoError(t, err)

	calls := 0
	tr.send = func(ctx context.Context, msg Message) error {
		calls++
		return &textproto.Error{Code: 550, Msg: "no such user"}
	}

	err = tr.Deliver(context.Background(), resetConfirmationMessage("a@x.com"))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, isTemporary(&textproto.Error{Code: 421}))
	assert.False(t, isTemporary(&textproto.Error{Code: 554}))
	assert.True(t, isTemporary(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.False(t, isTemporary(errors.New("plain")))
}

func TestNewSMTPTransport_BadAddr(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{Addr: "no-port"})
	assert.Error(t, err)
}
