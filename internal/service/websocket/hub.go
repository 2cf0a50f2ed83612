package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"antpi/internal/config"
	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/model"
)

// EventNewImage is the event type published for every stored image.
const EventNewImage = "new_image"

const defaultBuffer = 16

// Subscriber receives broadcast messages through a bounded buffer.
type Subscriber struct {
	id   string
	send chan []byte
}

// ID identifies the subscriber in logs.
func (s *Subscriber) ID() string { return s.id }

// Messages is closed once the subscriber is unsubscribed.
func (s *Subscriber) Messages() <-chan []byte { return s.send }

// HubService fans messages out to live subscribers. Broadcast never blocks:
// a subscriber whose buffer is full loses its oldest pending message.
type HubService struct {
	subscribers map[*Subscriber]bool
	bufferSize  int
	mutex       sync.Mutex
	logger      *logger.Logger
}

func NewHubService(config *config.Config, logger *logger.Logger) *HubService {
	size := config.SubscriberBuffer
	if size <= 0 {
		size = defaultBuffer
	}
	return &HubService{
		subscribers: make(map[*Subscriber]bool),
		bufferSize:  size,
		logger:      logger,
	}
}

func (h *HubService) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		send: make(chan []byte, h.bufferSize),
	}

	h.mutex.Lock()
	h.subscribers[sub] = true
	total := len(h.subscribers)
	h.mutex.Unlock()

	h.logger.Info("Subscriber %s connected. Total: %d", sub.id, total)
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (h *HubService) Unsubscribe(sub *Subscriber) {
	h.mutex.Lock()
	if !h.subscribers[sub] {
		h.mutex.Unlock()
		return
	}
	delete(h.subscribers, sub)
	close(sub.send)
	total := len(h.subscribers)
	h.mutex.Unlock()

	h.logger.Info("Subscriber %s disconnected. Total: %d", sub.id, total)
}

// Broadcast queues message for every subscriber and returns how many
// pending messages had to be dropped to make room.
func (h *HubService) Broadcast(message []byte) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	dropped := 0
	for sub := range h.subscribers {
		select {
		case sub.send <- message:
			continue
		default:
		}
		// Only the consumer drains the buffer, so one receive makes room.
		select {
		case <-sub.send:
			dropped++
		default:
		}
		select {
		case sub.send <- message:
		default:
		}
	}
	if dropped > 0 {
		h.logger.Warning("Dropped %d pending messages for slow subscribers", dropped)
	}
	return dropped
}

// PublishNewImage broadcasts a new_image event for filename. Encoding
// failures are logged, never returned.
func (h *HubService) PublishNewImage(filename string, metadata *model.Metadata) {
	event := dto.NewImageEvent{
		ID:       uuid.NewString(),
		Type:     EventNewImage,
		Filename: filename,
		Metadata: metadata,
	}
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding event for %s: %v", filename, err)
		return
	}
	h.Broadcast(message)
}

func (h *HubService) GetClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.subscribers)
}
