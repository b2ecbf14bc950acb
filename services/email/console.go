package emailsvc

import (
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

// ConsoleService delivers messages to the logger and keeps them in an outbox.
// It is used in DEBUG mode, and by tests through NewOutbox.
type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	logger     core.Logger
	quiet      bool // do not log deliveries
	blocking   bool // deliver in the caller's goroutine

	mu     sync.Mutex
	outbox []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(logger core.Logger) *ConsoleService {
	core.MustHaveDeps(core.NotNil(logger, "logger"))
	return &ConsoleService{
		from:       core.Conf.DefaultFromEmail,
		subjPrefix: "[" + core.Conf.AppName + "] ",
		logger:     logger,
	}
}

// NewOutbox returns a silent ConsoleService that delivers synchronously, so that tests can inspect Sent
// as soon as SendMessages returns.
func NewOutbox() *ConsoleService {
	svc := NewConsoleService(core.NopLogger{})
	svc.quiet = true
	svc.blocking = true
	return svc
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.blocking {
			svc.deliver(msg)
			continue
		}
		go svc.deliver(msg)
	}
}

// Sent returns a copy of the delivered messages, oldest first.
func (svc *ConsoleService) Sent() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.outbox...)
}

// Reset empties the outbox.
func (svc *ConsoleService) Reset() {
	svc.mu.Lock()
	svc.outbox = nil
	svc.mu.Unlock()
}

func (svc *ConsoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"), map[string]interface{}{"template": msg.TemplateName})
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		svc.logger.Warn("email dropped: no recipient or no content", map[string]interface{}{"subject": msg.Subject})
		return
	}

	svc.mu.Lock()
	svc.outbox = append(svc.outbox, *msg)
	svc.mu.Unlock()

	if svc.quiet {
		return
	}
	svc.logger.Info("email", map[string]interface{}{
		"from":        svc.from.String(),
		"to":          joinAddresses(msg.To),
		"cc":          joinAddresses(msg.Cc),
		"bcc":         joinAddresses(msg.Bcc),
		"subject":     svc.subjPrefix + msg.Subject,
		"text":        msg.TextContent,
		"html_bytes":  len(msg.HTMLContent),
		"attachments": attachmentNames(msg.Attachments),
	})
}

func joinAddresses(addrs []mail.Address) string {
	joined := make([]string, 0, len(addrs))
	for _, a := range addrs {
		joined = append(joined, a.String())
	}
	return strings.Join(joined, ", ")
}

func attachmentNames(ats []core.Attachment) []string {
	names := make([]string, 0, len(ats))
	for _, at := range ats {
		names = append(names, at.Filename+" ("+at.ContentType+")")
	}
	return names
}
