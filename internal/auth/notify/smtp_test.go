package notify

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts one session and returns the DATA payload on the channel.
func fakeSMTP(t *testing.T) (string, int, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.Fields(line)[0])
			switch cmd {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case "MAIL", "RCPT", "RSET", "NOOP":
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, _ := io.ReadAll(tp.DotReader())
				got <- string(data)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, got
}

func TestSMTPNotifier(t *testing.T) {
	host, port, got := fakeSMTP(t)

	n := &SMTPNotifier{Host: host, Port: port, From: "noreply@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := n.SendVerification(ctx, domain.VerificationEmail{
		Email: "carol@example.com", Name: "Carol", Token: "tok-789",
	})
	require.NoError(t, err)

	select {
	case data := <-got:
		require.Contains(t, data, "To: carol@example.com")
		require.Contains(t, data, "Subject: Verify your email")
		require.Contains(t, data, "Your verification token is: tok-789")
	case <-time.After(5 * time.Second):
		t.Fatal("smtp server received no message")
	}
}

func TestSMTPNotifierNotConfigured(t *testing.T) {
	n := &SMTPNotifier{}
	err := n.SendVerification(context.Background(), domain.VerificationEmail{Email: "x@example.com"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
