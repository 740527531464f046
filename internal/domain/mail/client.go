package mail

// Client delivers a rendered notification. Implementations are thin
// transport wrappers; a nil error means the message was accepted for
// delivery.
type Client interface {
	Send(recipient, subject, plainBody, htmlBody string) error
}
