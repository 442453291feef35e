package api

import (
	"time"

	"github.com/nerrad567/todo-core/internal/infrastructure/mqtt"
)

// EventPublisher publishes JSON payloads to a topic.
// *mqtt.Client satisfies it.
type EventPublisher interface {
	PublishJSON(topic string, v any) error
}

// Task event actions.
const (
	TaskActionCreated = "created"
	TaskActionUpdated = "updated"
	TaskActionDeleted = "deleted"
)

// TaskEvent is published after a successful task mutation.
type TaskEvent struct {
	Action    string `json:"action"`
	TaskID    int64  `json:"task_id"`
	Completed *bool  `json:"completed,omitempty"`
	Timestamp string `json:"timestamp"`
}

// publishTaskEvent announces a mutation on the owner's event topic.
// Publishing is best effort: failures are logged and never reach the client.
func (s *Server) publishTaskEvent(userID int64, event TaskEvent) {
	if s.events == nil {
		return
	}

	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	topic := mqtt.Topics{}.TaskEvents(userID)
	if err := s.events.PublishJSON(topic, event); err != nil {
		s.logger.Warn("publishing task event failed",
			"topic", topic,
			"action", event.Action,
			"task_id", event.TaskID,
			"error", err,
		)
	}
}
