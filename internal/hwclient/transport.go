package hwclient

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ========================= transport =========================

// Transport — двунаправленный канал сообщений, которым владеет клиент.
// Сам клиент транспорт не реализует: по умолчанию это WebSocket (ниже),
// в тестах — фейк в памяти.
type Transport interface {
	// ReadMessage блокируется до следующего входящего кадра.
	ReadMessage() ([]byte, error)
	// WriteMessage отправляет один кадр; потокобезопасен.
	WriteMessage(data []byte) error
	// Close закрывает канал; висящий ReadMessage вернёт ошибку.
	Close() error
}

// Dialer устанавливает новый транспорт. Клиент гарантирует, что в каждый
// момент времени выполняется не больше одного вызова.
type Dialer func(ctx context.Context, url string) (Transport, error)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second
	readLimit  = 64 << 20
)

// wsTransport — транспорт поверх gorilla/websocket: текстовые кадры,
// запись сериализована мьютексом с write-deadline, keep-alive пингами
// каждые pingPeriod, pong продлевает read-deadline.
type wsTransport struct {
	conn     *websocket.Conn
	wmu      sync.Mutex // сериализует запись: данные и контрольные кадры
	pingStop chan struct{}
	stopOnce sync.Once
}

// DialWebSocket — Dialer по умолчанию.
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	t := &wsTransport{conn: conn, pingStop: make(chan struct{})}
	go t.pingLoop()
	return t, nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	t.stopOnce.Do(func() { close(t.pingStop) })
	// вежливый close frame, затем жёсткое закрытие
	t.wmu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	t.wmu.Unlock()
	return t.conn.Close()
}

func (t *wsTransport) pingLoop() {
	tick := time.NewTicker(pingPeriod)
	defer tick.Stop()
	for {
		select {
		case <-t.pingStop:
			return
		case <-tick.C:
			t.wmu.Lock()
			_ = t.conn.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(writeWait))
			t.wmu.Unlock()
		}
	}
}
