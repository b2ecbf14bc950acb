package emailsvc

import (
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzugar/backend/core"
)

func TestOutbox(t *testing.T) {
	svc := NewOutbox()

	svc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: "Ayu", Address: "ayu@example.com"}},
			Subject: "Halo",
			BodyStr: "apa kabar",
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Halo", sent[0].Subject)
	assert.Equal(t, "apa kabar", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

type recordingLogger struct {
	core.NopLogger
	mu    sync.Mutex
	infos []map[string]interface{}
}

func (l *recordingLogger) Info(_ string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, arg := range args {
		if m, ok := arg.(map[string]interface{}); ok {
			l.infos = append(l.infos, m)
		}
	}
}

func TestConsoleService_logsDelivery(t *testing.T) {
	logger := new(recordingLogger)
	svc := NewConsoleService(logger)
	svc.blocking = true

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "ayu@example.com"}},
		Subject: "Rekap",
		BodyStr: "lihat lampiran",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "rekap.csv", "text/csv"))
	svc.SendMessages(msg)

	require.Len(t, logger.infos, 1)
	entry := logger.infos[0]
	assert.Equal(t, "<ayu@example.com>", entry["to"])
	assert.True(t, strings.HasSuffix(entry["subject"].(string), "Rekap"))
	assert.Equal(t, []string{"rekap.csv (text/csv)"}, entry["attachments"])
	assert.Len(t, svc.Sent(), 1)
}

func TestSendgridService_send(t *testing.T) {
	retryDelay = 0

	tests := []struct {
		name      string
		statuses  []int
		wantCalls int
		wantErr   bool
	}{
		{name: "accepted", statuses: []int{http.StatusAccepted}, wantCalls: 1},
		{name: "retried then accepted", statuses: []int{http.StatusServiceUnavailable, http.StatusAccepted}, wantCalls: 2},
		{name: "rate limited until exhausted", statuses: []int{429, 429, 429}, wantCalls: 3, wantErr: true},
		{name: "bad request is final", statuses: []int{http.StatusBadRequest}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			svc := sendgridService{
				logger: core.NopLogger{},
				api: func(req rest.Request) (*rest.Response, error) {
					status := tt.statuses[calls]
					calls++
					return &rest.Response{StatusCode: status}, nil
				},
			}
			msg := core.EmailMessage{To: []mail.Address{{Address: "ayu@example.com"}}, TextContent: "hi"}

			err := svc.send(msg)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
