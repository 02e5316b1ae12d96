package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"stayalive/internal/domain"
	"stayalive/internal/events"
	"stayalive/internal/metrics"
	"stayalive/internal/ws"
)

// Registry is the slice of the connection manager the notifier needs.
type Registry interface {
	SendTo(role domain.Role, id uuid.UUID, msg ws.Message) bool
	Clients(role domain.Role) []*ws.Client
}

// Notifier drains lifecycle events and pushes notifications to the live
// sessions in the computed audience. A single goroutine consumes the
// subscription so per-emergency publish order is preserved on delivery.
// Everything here is best effort: no live session, no notification.
type Notifier struct {
	logger   *slog.Logger
	registry Registry
	bus      *events.Bus
	metrics  *metrics.Collector
}

func NewNotifier(logger *slog.Logger, registry Registry, bus *events.Bus, collector *metrics.Collector) *Notifier {
	return &Notifier{
		logger:   logger,
		registry: registry,
		bus:      bus,
		metrics:  collector,
	}
}

// Run consumes the bus until the context is canceled. Call it from a
// dedicated goroutine.
func (n *Notifier) Run(ctx context.Context) {
	sub := n.bus.Subscribe()
	defer n.bus.Unsubscribe(sub)

	n.logger.Info("dispatch notifier started")
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				n.logger.Info("event bus closed, notifier stopping")
				return
			}
			n.handle(ev)
		case <-ctx.Done():
			n.logger.Info("dispatch notifier stopping", "reason", ctx.Err())
			return
		}
	}
}

func (n *Notifier) handle(ev events.Event) {
	switch ev.Type {
	case events.EmergencyCreated, events.EmergencyRefused:
		// Offer (or re-offer after a refusal) to every eligible rescuer.
		n.broadcastOffer(ev)
	case events.EmergencyAskAssign:
		// Directed offer to the chosen rescuer, echoed to the call center.
		if ev.Rescuer != nil {
			sent := n.registry.SendTo(domain.RoleRescuer, ev.Rescuer.ID, n.offerMessage(ev))
			n.metrics.RecordNotification("rescuer", sent)
		}
		n.notifyCallCenter(ev)
	case events.EmergencyAssigned, events.EmergencyCanceled, events.EmergencyTerminated:
		n.notifyCallCenter(ev)
	default:
		n.logger.Warn("unhandled event type", "type", ev.Type)
	}
}

func (n *Notifier) broadcastOffer(ev events.Event) {
	msg := n.offerMessage(ev)
	for _, client := range n.registry.Clients(domain.RoleRescuer) {
		if ev.Emergency.HiddenFor(client.ID) {
			continue
		}
		sent := client.Send(msg)
		n.metrics.RecordNotification("rescuer", sent)
		if !sent {
			n.logger.Debug("offer dropped, slow client",
				"rescuerID", client.ID, "emergencyID", ev.Emergency.ID)
		}
	}
}

func (n *Notifier) notifyCallCenter(ev events.Event) {
	msg, err := eventMessage(ev)
	if err != nil {
		n.logger.Error("failed to encode notification", "error", err)
		return
	}
	sent := n.registry.SendTo(domain.RoleCallCenter, ev.CallCenter.ID, msg)
	n.metrics.RecordNotification("call_center", sent)
	if !sent {
		n.logger.Debug("call center notification dropped",
			"callCenterID", ev.CallCenter.ID, "emergencyID", ev.Emergency.ID)
	}
}

func (n *Notifier) offerMessage(ev events.Event) ws.Message {
	msg, err := eventMessage(ev)
	if err != nil {
		n.logger.Error("failed to encode offer", "error", err)
		return ws.Message{Type: "emergency"}
	}
	msg.Type = "emergency"
	return msg
}

func eventMessage(ev events.Event) (ws.Message, error) {
	payload := newEventPayload(ev)
	data, err := json.Marshal(payload)
	if err != nil {
		return ws.Message{}, err
	}
	return ws.Message{Type: "event", Data: data}, nil
}
