package mail

import (
	"context"

	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/metrics"
)

// Postman owns a bounded mail queue drained by one worker.
type Postman struct {
	queue  chan Message
	sender Sender
	log    logging.Logger
}

func NewPostman(sender Sender, size int, log logging.Logger) *Postman {
	if size < 1 {
		size = 1
	}
	return &Postman{
		queue:  make(chan Message, size),
		sender: sender,
		log:    log,
	}
}

// Enqueue hands msg to the worker without blocking. When the queue is full
// the message is dropped and logged; it reports whether msg was queued.
func (p *Postman) Enqueue(ctx context.Context, msg Message) bool {
	select {
	case p.queue <- msg:
		return true
	default:
		p.log.Warn(ctx, "mail queue full, message dropped", "to", msg.To, "template", msg.Template)
		metrics.RecordMailDelivery(msg.Template, metrics.OutcomeDropped)
		return false
	}
}

// Run delivers queued messages until ctx is cancelled. Messages still
// queued at that point are discarded.
func (p *Postman) Run(ctx context.Context) {
	p.log.Info(ctx, "postman started")
	defer p.log.Info(ctx, "postman stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

func (p *Postman) deliver(ctx context.Context, msg Message) {
	if err := p.sender.Send(ctx, msg); err != nil {
		logging.LogError(ctx, p.log, "mail delivery failed", err)
		metrics.RecordMailDelivery(msg.Template, metrics.OutcomeError)
		return
	}
	metrics.RecordMailDelivery(msg.Template, metrics.OutcomeSuccess)
}
