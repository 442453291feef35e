package mqtt

import "fmt"

// TopicPrefix is the root of every Todo Core topic.
const TopicPrefix = "todocore"

// Topics builds Todo Core MQTT topic names.
//
//	topic := mqtt.Topics{}.TaskEvents(42)
//	// Returns: "todocore/events/42/tasks"
type Topics struct{}

// SystemStatus is the retained online/offline status topic.
//
// Example: todocore/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// TaskEvents is the per-user task change topic.
//
// Example: todocore/events/42/tasks
func (Topics) TaskEvents(userID int64) string {
	return fmt.Sprintf("%s/events/%d/tasks", TopicPrefix, userID)
}

// AllTaskEvents matches task events for every user.
//
// Example: todocore/events/+/tasks
func (Topics) AllTaskEvents() string {
	return TopicPrefix + "/events/+/tasks"
}
