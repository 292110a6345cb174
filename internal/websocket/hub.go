// Package websocket streams campaign events to subscribed clients. The
// hub implements the engine's event sink; publishing never blocks a
// campaign operation.
package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/domain"
)

type campaignEvent struct {
	campaignID uuid.UUID
	event      domain.Event
}

type Hub struct {
	clients       map[*Client]bool
	subscriptions map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan campaignEvent
	stop       chan struct{}
	done       chan struct{}
	stopped    bool

	log *logrus.Logger
	mu  sync.RWMutex
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[uuid.UUID]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan campaignEvent, 256),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		log:           log,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.subscriptions = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if !h.stopped {
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					h.dropSubscriptions(client)
					client.Close()
				}
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Stop gracefully shuts down the hub and waits for Run to exit.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Publish implements the engine's event sink. The broadcast channel is
// buffered; when a slow consumer fills it, the event is dropped rather
// than stalling the campaign operation that produced it.
func (h *Hub) Publish(campaignID uuid.UUID, event domain.Event) {
	select {
	case h.broadcast <- campaignEvent{campaignID: campaignID, event: event}:
	default:
		h.log.WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"event_type":  event.Type,
		}).Warn("event broadcast buffer full, dropping event")
	}
}

func (h *Hub) deliver(ev campaignEvent) {
	msg, err := NewMessage(MessageTypeCampaignEvent, CampaignEventPayload{
		CampaignID: ev.campaignID.String(),
		Event:      ev.event,
	})
	if err != nil {
		h.log.WithError(err).Error("failed to encode campaign event")
		return
	}
	data, err := msg.Encode()
	if err != nil {
		h.log.WithError(err).Error("failed to encode campaign event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.subscriptions[ev.campaignID] {
		client.TrySend(data)
	}
}

func (h *Hub) subscribe(client *Client, campaignID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || !h.clients[client] {
		return
	}
	subs, ok := h.subscriptions[campaignID]
	if !ok {
		subs = make(map[*Client]bool)
		h.subscriptions[campaignID] = subs
	}
	subs[client] = true
}

func (h *Hub) unsubscribe(client *Client, campaignID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscriptions[campaignID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, campaignID)
		}
	}
}

// dropSubscriptions removes a departing client everywhere. Caller holds
// the lock.
func (h *Hub) dropSubscriptions(client *Client) {
	for id, subs := range h.subscriptions {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, id)
		}
	}
}
