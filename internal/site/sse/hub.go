package sse

import (
	"fmt"
	"log"
	"sync"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	SiteID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// GlobalHub is the singleton SSE Hub instance
var GlobalHub = NewHub()

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
		}
	}
}

// BroadcastToSite sends an event to every client scoped to a site
func (h *Hub) BroadcastToSite(siteID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.SiteID == siteID {
			select {
			case client.Events <- event:
			default:
				log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
			}
		}
	}
}

// PublishRequestUpdate notifies site clients that a request changed, so the
// incoming/scheduled/archived tabs can refresh.
func PublishRequestUpdate(siteID, requestID, requestType, action string) {
	data := fmt.Sprintf(`{"request_id":"%s","type":"%s","action":"%s"}`, requestID, requestType, action)
	GlobalHub.BroadcastToSite(siteID, Event{
		EventType: "request_update",
		Data:      data,
	})
	log.Printf("[SSE] Published request_update: site=%s request=%s action=%s", siteID, requestID, action)
}

// PublishGridUpdate notifies site clients of grid cell progress changes
func PublishGridUpdate(siteID, activityID string, completed int) {
	data := fmt.Sprintf(`{"activity_id":"%s","completed":%d}`, activityID, completed)
	GlobalHub.BroadcastToSite(siteID, Event{
		EventType: "grid_update",
		Data:      data,
	})
}

// PublishTimesheetUpdate notifies site clients of timesheet state changes
func PublishTimesheetUpdate(siteID, timesheetID, action string) {
	data := fmt.Sprintf(`{"timesheet_id":"%s","action":"%s"}`, timesheetID, action)
	GlobalHub.BroadcastToSite(siteID, Event{
		EventType: "timesheet_update",
		Data:      data,
	})
}

// SendToUser 给特定用户发送事件（而非广播）
func SendToUser(userID string, event Event) {
	GlobalHub.mu.RLock()
	defer GlobalHub.mu.RUnlock()
	for _, client := range GlobalHub.clients {
		if client.UserID == userID {
			select {
			case client.Events <- event:
			default:
				log.Printf("[SSE] Client %s buffer full, skipping user event", client.ID)
			}
		}
	}
}
