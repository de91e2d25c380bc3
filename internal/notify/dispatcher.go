package notify

import "log"

const (
	TypeSMS   = "sms"
	TypeEmail = "email"
)

// Request is an outbound notification request handed to the external
// dispatcher. The idempotency key is derived from entity id + event kind so
// retried sends deduplicate.
type Request struct {
	Type           string
	To             string
	TemplateCode   string
	Payload        map[string]any
	IdempotencyKey string
}

// Enqueuer is what usecases depend on; failures must never propagate into
// the primary state transition.
type Enqueuer interface {
	Enqueue(req Request)
}

type Dispatcher struct {
	store *Store
	queue chan Request
}

func NewDispatcher(store *Store) *Dispatcher {
	d := &Dispatcher{
		store: store,
		queue: make(chan Request, 100),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for req := range d.queue {
		if err := d.store.Save(req); err != nil {
			log.Println("notify error:", err)
		}
	}
}

func (d *Dispatcher) Enqueue(req Request) {
	if req.To == "" {
		return
	}
	select {
	case d.queue <- req:
	default:
		// queue full: drop rather than block a booking on notifications
		log.Println("notify queue full, dropping request", req.TemplateCode)
	}
}
