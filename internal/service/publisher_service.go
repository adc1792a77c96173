package service

import (
	"encoding/json"
	"time"

	"realtime-chat-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// PresenceTopic is the in-process bus topic for presence transitions.
const PresenceTopic = "presence.changed"

type IPublisherService interface {
	PublishPresenceChange(userID uuid.UUID, online bool) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

// PublishPresenceChange hands the transition to the presence worker.
// The connection path only pays for a channel send here; the durable
// flag update and downstream fan-out happen on the worker.
func (s *publisherService) PublishPresenceChange(userID uuid.UUID, online bool) error {
	payload := dto.PresenceChangedMessage{
		UserId: userID,
		Online: online,
		At:     time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return s.pubSub.Publish(s.topicName, msg)
}
