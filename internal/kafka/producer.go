package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/models"
)

// Producer publishes domain events after commit. Publishing is best
// effort: a failed publish never rolls back the transaction that
// produced it.
type Producer struct {
	writer *kafka.Writer
	topics Topics
}

type Topics struct {
	TicketPurchased     string
	TeamMemberJoined    string
	AnnouncementCreated string
}

func NewProducer(brokers []string, topics Topics) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: topics}
}

func (p *Producer) publish(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) PublishTicketPurchased(ticket models.Ticket) error {
	return p.publish(p.topics.TicketPurchased, ticket.TicketID, ticket)
}

func (p *Producer) PublishTeamMemberJoined(member models.TeamMember) error {
	return p.publish(p.topics.TeamMemberJoined, strconv.FormatInt(member.TeamID, 10), member)
}

func (p *Producer) PublishAnnouncementCreated(a models.Announcement) error {
	return p.publish(p.topics.AnnouncementCreated, strconv.FormatInt(a.EventID, 10), a)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
