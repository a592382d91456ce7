package notify

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSmtp accepts mail without advertising AUTH and sends every message body to messages.
func fakeSmtp(t *testing.T) (host string, port int, messages chan string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		listener.Close()
	})
	messages = make(chan string, 4)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveSmtp(conn, messages)
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port, messages
}

func serveSmtp(conn net.Conn, messages chan string) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	reply := func(line string) {
		fmt.Fprintf(conn, "%s\r\n", line)
	}

	reply("220 localhost ESMTP")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(command, "EHLO"), strings.HasPrefix(command, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(command, "DATA"):
			reply("354 end data with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				data.WriteString(dataLine)
			}
			messages <- data.String()
			reply("250 queued")
		case strings.HasPrefix(command, "QUIT"):
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func TestSummary(t *testing.T) {
	summary := Summary{
		RunID:   "k3j9x0qa",
		Elapsed: "12m5s",
		Lines: []Line{
			{Report: "student_data", Status: "normalized", Detail: "412 rows"},
			{Report: "ell_export", Status: "not_found", Detail: "extract.html missing after 5 attempts"},
		},
	}
	require.Equal(t, "icreports k3j9x0qa: 1 of 2 reports failed", summary.Subject())
	require.Contains(t, summary.Body(), "Run k3j9x0qa finished in 12m5s.")
	require.Contains(t, summary.Body(), "extract.html missing after 5 attempts")

	summary.Lines = summary.Lines[:1]
	require.Equal(t, "icreports k3j9x0qa: all 1 reports normalized", summary.Subject())
}

func TestSendFallsBackWithoutAuth(t *testing.T) {
	host, port, messages := fakeSmtp(t)
	config := SmtpConfig{
		Server:       host,
		Port:         port,
		EmailAddress: "reports@example.org",
		Password:     "hunter2",
		To:           []string{"data-team@example.org"},
	}
	require.True(t, config.Enabled())

	err := NewMailer(config).Send(context.Background(), Summary{
		RunID: "run1",
		Lines: []Line{{Report: "ada_adm", Status: "format_error", Detail: "row width at row 40"}},
	})
	require.NoError(t, err)

	message := <-messages
	require.Contains(t, message, "Subject: icreports run1: 1 of 1 reports failed")
	require.Contains(t, message, "row width at row 40")
}

func TestEnabled(t *testing.T) {
	require.False(t, SmtpConfig{}.Enabled())
	require.False(t, SmtpConfig{Server: "smtp.example.org"}.Enabled())
}
