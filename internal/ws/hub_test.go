package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, topic string) *Client {
	return &Client{
		hub:   hub,
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, TopicOrders)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[TopicOrders] == nil {
		t.Fatal("topic room not created")
	}
	if !hub.rooms[TopicOrders][client] {
		t.Fatal("client not registered in topic room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, TopicOrders)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[TopicOrders] != nil {
		t.Fatal("topic room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orderClient := mockClient(hub, TopicOrders)
	inventoryClient := mockClient(hub, TopicInventory)

	// Register both clients
	hub.register <- orderClient
	hub.register <- inventoryClient
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the orders topic only
	testPayload := json.RawMessage(`{"order_number":"WNG-000123"}`)
	event := Event{
		Type:    EventOrderCreated,
		Payload: testPayload,
	}
	hub.Broadcast(TopicOrders, event)

	// Check the orders client receives the message
	select {
	case msg := <-orderClient.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventOrderCreated {
			t.Errorf("expected type '%s', got '%s'", EventOrderCreated, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("orders client did not receive message")
	}

	// Check the inventory client does NOT receive the message
	select {
	case <-inventoryClient.send:
		t.Fatal("inventory client should not have received an orders event")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsOnSameTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, TopicInventory)
	client2 := mockClient(hub, TopicInventory)
	client3 := mockClient(hub, TopicInventory)

	// Register all clients to the same topic
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"name":"Buffalo Wings","status":"UNAVAILABLE"}`)
	event := Event{
		Type:    EventAvailabilityChanged,
		Payload: testPayload,
	}
	hub.Broadcast(TopicInventory, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != EventAvailabilityChanged {
				t.Errorf("client%d: expected type '%s', got '%s'", i+1, EventAvailabilityChanged, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, TopicOrders)
	client2 := mockClient(hub, TopicOrders)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[TopicOrders]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[TopicOrders]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[TopicOrders]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[TopicOrders]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[TopicOrders] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToEmptyTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client on the orders topic
	client := mockClient(hub, TopicOrders)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the inventory topic (no subscribers)
	event := Event{
		Type:    EventAvailabilityChanged,
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.Broadcast(TopicInventory, event)

	// The orders client should NOT receive anything
	select {
	case <-client.send:
		t.Fatal("client should not receive message for a different topic")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
