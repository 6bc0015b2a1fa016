package health

import "context"

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyChecker сообщает о готовности публикатора
type ReadyChecker interface {
	Ready() bool
}
