package publisher

import (
	"strings"
	"time"

	"assignments/internal/model"
)

// StatusEvent сообщение о смене статуса задания
type StatusEvent struct {
	AssignmentID string                 `json:"assignmentId"`
	TeacherID    *string                `json:"teacherId"`
	Status       model.AssignmentStatus `json:"status"`
	OccurredAt   time.Time              `json:"occurredAt"`
}

// MsgID ключ дедупликации в JetStream
func (e StatusEvent) MsgID() string {
	return e.AssignmentID + ":" + e.Status.String()
}

// StreamName выводит имя стрима из имени exchange: elearning.report -> ELEARNING_REPORT
func StreamName(exchange string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_", "*", "_", ">", "_").Replace(exchange))
}

// Subject возвращает subject публикации для exchange и routing key
func Subject(exchange, routingKey string) string {
	return exchange + "." + routingKey
}
