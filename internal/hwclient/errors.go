package hwclient

import "errors"

// Ошибки уровня соединения. Request/Send возвращают их как есть,
// сравнивать через errors.Is.
var (
	// ErrNotConnected — отправка без открытого соединения. Клиент не
	// буферизует исходящие: сначала Connect, потом Send/Request.
	ErrNotConnected = errors.New("not connected")

	// ErrRequestTimeout — ответ не пришёл в срок; запись о запросе снята,
	// поздний ответ будет проигнорирован.
	ErrRequestTimeout = errors.New("timeout waiting for response")

	// ErrConnectionLost — транспорт умер, пока запрос был в полёте.
	ErrConnectionLost = errors.New("connection lost")

	// ErrClosed — клиент закрыт вызовом Disconnect.
	ErrClosed = errors.New("connection closed")
)

// ServerError — явный отказ сервера (кадр type:"error").
// Message передаётся дословно, как прислал сервер.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server error"
	}
	return "server error: " + e.Message
}
