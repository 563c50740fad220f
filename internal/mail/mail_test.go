package mail

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/elearning/internal/config"
)

func TestRender_ActivationEscapesInput(t *testing.T) {
	body, err := Render(context.Background(), Message{
		Template: TemplateActivation,
		Data:     ActivationData{Name: "<script>x</script>", Code: "4821"},
	})
	require.NoError(t, err)

	assert.Contains(t, body, "4821")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestRender_OrderConfirmationFormatsPrice(t *testing.T) {
	body, err := Render(context.Background(), Message{
		Template: TemplateOrderConfirmation,
		Data: OrderData{
			OrderID:    "abc123",
			CourseName: "Go Basics",
			Price:      decimal.RequireFromString("19.5"),
			Date:       "March 1, 2025",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "$19.50")
	assert.Contains(t, body, "Go Basics")
}

func TestRender_RejectsMismatchedData(t *testing.T) {
	_, err := Render(context.Background(), Message{Template: TemplateQuestionReply, Data: ActivationData{}})
	assert.Error(t, err)

	_, err = Render(context.Background(), Message{Template: "nope"})
	assert.Error(t, err)
}

func TestLogSender_RendersBeforeLogging(t *testing.T) {
	s := NewLogSender()
	require.NoError(t, s.Send(context.Background(), Message{
		To: "a@x.com", Subject: "hi", Template: TemplateQuestionReply,
		Data: QuestionReplyData{Name: "Ann", Title: "Intro"},
	}))
	assert.Error(t, s.Send(context.Background(), Message{Template: "nope"}))
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{FromName: "E-Learning", FromEmail: "no-reply@x.com"})
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	raw := s.buildMessage(s.fromAddress(), "a@x.com", "Hello\r\nBcc: evil@x.com", "<p>body</p>")
	assert.Contains(t, raw, "Subject: HelloBcc: evil@x.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>body</p>"))
}

// fakeSMTP accepts one session and records the DATA payload.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		write("220 fake ESMTP")

		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					write("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 ok")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPSender_DeliversPlain(t *testing.T) {
	addr, received := fakeSMTP(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s := NewSMTPSender(config.MailConfig{
		Host: host, Port: port, Encryption: "none",
		FromEmail: "no-reply@x.com", FromName: "E-Learning",
	})

	err = s.Send(context.Background(), Message{
		To: "a@x.com", Subject: "Activate your account", Template: TemplateActivation,
		Data: ActivationData{Name: "Ann", Code: "1234"},
	})
	require.NoError(t, err)

	select {
	case payload := <-received:
		assert.Contains(t, payload, "To: a@x.com")
		assert.Contains(t, payload, "1234")
	case <-time.After(5 * time.Second):
		t.Fatal("fake SMTP server received nothing")
	}
}

func TestSMTPSender_ConnectFailureIsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	s := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: addr.Port, Encryption: "none", FromEmail: "x@x.com"})
	err = s.Send(context.Background(), Message{
		To: "a@x.com", Template: TemplateActivation, Data: ActivationData{Code: "1234"},
	})
	assert.Error(t, err)
}
