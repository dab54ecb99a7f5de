// Пакет logger предоставляет обертку для публикации событий активности в NATS
package logger

import "encoding/json"

// Conn определяет минимальный интерфейс для работы с NATS-подключением.
// Любая реализация Conn (например *nats.Conn) должна предоставлять метод Publish
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSClient хранит Conn и тему subject для публикации событий
type NATSClient struct {
	conn    Conn
	subject string
}

// NewClient создает новый NATSClient, связывая Conn и subject
func NewClient(conn Conn, subject string) *NATSClient {
	return &NATSClient{conn: conn, subject: subject}
}

// PublishLog отправляет сырые данные в указанный subject в NATS
func (n *NATSClient) PublishLog(data []byte) error {
	return n.conn.Publish(n.subject, data)
}

// PublishEvent сериализует событие в JSON и публикует его.
// Ошибка сериализации возвращается до обращения к брокеру
func (n *NATSClient) PublishEvent(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}
