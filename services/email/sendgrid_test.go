package emailsvc

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/presence/core"
	logsvc "github.com/trezcool/presence/services/logger"
)

func newTestSendgridService(post func(m *sgmail.SGMailV3) (*rest.Response, error)) *sendgridService {
	conf := core.NewTestConfig()
	return &sendgridService{
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[Presence] ",
		logger:     logsvc.NewRollbarLogger(zap.NewNop(), conf),
		post:       post,
	}
}

func TestSendgridService_build(t *testing.T) {
	svc := newTestSendgridService(nil)
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "Jane", Address: "jane@school.ma"}},
		Bcc:          []mail.Address{{Address: "archive@school.ma"}},
		Subject:      "Your schedule",
		TemplateName: "schedule_updated",
		TextContent:  "see attached",
		HTMLContent:  "<p>see attached</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader("%PDF-1.4"), "schedule.pdf", "application/pdf"))

	m := svc.build(msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Presence] Your schedule", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "jane@school.ma", p.To[0].Address)
	assert.Empty(t, p.CC)
	require.Len(t, p.BCC, 1)

	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
	assert.Equal(t, []string{"schedule_updated"}, m.Categories)

	require.Len(t, m.Attachments, 1)
	at := m.Attachments[0]
	assert.Equal(t, "schedule.pdf", at.Filename)
	assert.Equal(t, "application/pdf", at.Type)
	assert.Equal(t, "attachment", at.Disposition)
	assert.Equal(t, msg.Attachments[0].Content.String(), at.Content)
}

func TestSendgridService_send(t *testing.T) {
	tests := []struct {
		name      string
		responses []int
		postErr   error
		wantCalls int
		wantErr   bool
	}{
		{name: "accepted", responses: []int{http.StatusAccepted}, wantCalls: 1},
		{name: "retried until accepted", responses: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusAccepted}, wantCalls: 3},
		{name: "gives up", responses: []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable}, wantCalls: 3, wantErr: true},
		{name: "client error is not retried", responses: []int{http.StatusBadRequest}, wantCalls: 1, wantErr: true},
		{name: "transport error", postErr: errors.New("connection reset"), wantCalls: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			svc := newTestSendgridService(func(m *sgmail.SGMailV3) (*rest.Response, error) {
				calls++
				if tt.postErr != nil {
					return nil, tt.postErr
				}
				return &rest.Response{StatusCode: tt.responses[calls-1], Body: "{}"}, nil
			})

			err := svc.send(sgmail.NewV3Mail())
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
