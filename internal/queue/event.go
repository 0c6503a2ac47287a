// Package queue carries outbound notifications over RabbitMQ: a publisher
// used by the auth service and a consumer that drains the queue.
package queue

import "time"

// MailQueueName is the durable queue holding outbound mail.
const MailQueueName = "email.outbound"

// MailRequestedEvent is published for every notification the auth
// service sends.  Body is HTML.
type MailRequestedEvent struct {
	ID          string    `json:"id"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	RequestedAt time.Time `json:"requested_at"`
}
