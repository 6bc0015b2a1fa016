package metrics

import "time"

// Результаты для меток метрик
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Interface определяет интерфейс для системы метрик
type Interface interface {
	// RecordSweepPass записывает завершение прохода сверки
	RecordSweepPass(result string, duration time.Duration)

	// RecordClosed записывает число закрытых заданий
	RecordClosed(count int)

	// RecordPublish записывает результат публикации события
	RecordPublish(status, result string)

	// RecordHTTPRequest записывает обработанный HTTP запрос
	RecordHTTPRequest(method string, code int, duration time.Duration)
}

// Nop реализация без записи, для тестов и отключенных метрик
type Nop struct{}

var _ Interface = Nop{}

// RecordSweepPass ничего не делает
func (Nop) RecordSweepPass(string, time.Duration) {}

// RecordClosed ничего не делает
func (Nop) RecordClosed(int) {}

// RecordPublish ничего не делает
func (Nop) RecordPublish(string, string) {}

// RecordHTTPRequest ничего не делает
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
