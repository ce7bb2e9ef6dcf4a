package hwclient

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ========================= pending requests =========================

// result — исход коррелированного запроса: либо env, либо err.
type result struct {
	env *Envelope
	err error
}

// pending — один запрос в полёте. Канал буферизован на 1, чтобы тот, кто
// закрыл запись в таблице, мог положить исход не блокируясь.
type pending struct {
	id    string
	ch    chan result
	timer *time.Timer
}

// pendingTable хранит запросы в полёте по correlation id. Запись
// уничтожается ровно один раз: ответом, своим таймаутом или массовым
// сбросом при потере соединения — кто первым забрал (take) запись, тот и
// решает её судьбу. Остальные пути после этого — no-op.
type pendingTable struct {
	mu sync.Mutex
	m  map[string]*pending
}

func newPendingTable() *pendingTable {
	return &pendingTable{m: make(map[string]*pending)}
}

// add регистрирует запрос и взводит таймаут. По истечении таймаута запись
// снимается и ожидающий получает ErrRequestTimeout; поздний ответ уже
// никого не найдёт.
func (t *pendingTable) add(id string, timeout time.Duration) *pending {
	p := &pending{id: id, ch: make(chan result, 1)}
	t.mu.Lock()
	t.m[id] = p
	// таймер взводится под мьютексом: take/failAll читают p.timer, только
	// забрав запись под этим же мьютексом. Колбэк сам берёт take — он
	// сработает уже после разблокировки.
	p.timer = time.AfterFunc(timeout, func() {
		if e := t.take(id); e != nil {
			e.ch <- result{err: ErrRequestTimeout}
		}
	})
	t.mu.Unlock()
	return p
}

// take забирает запись из таблицы. nil — запись уже забрали (ответ,
// таймаут и сброс соединения гоняются именно здесь, под одним мьютексом).
func (t *pendingTable) take(id string) *pending {
	t.mu.Lock()
	p, ok := t.m[id]
	if ok {
		delete(t.m, id)
	}
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}

// drop снимает запись без вручения исхода — когда запись в сокет не
// удалась и ждать нечего.
func (t *pendingTable) drop(id string) {
	_ = t.take(id)
}

// failAll сбрасывает все ожидающие запросы с одной ошибкой (соединение
// умерло или закрыто намеренно).
func (t *pendingTable) failAll(err error) {
	t.mu.Lock()
	all := make([]*pending, 0, len(t.m))
	for id, p := range t.m {
		all = append(all, p)
		delete(t.m, id)
	}
	t.mu.Unlock()

	for _, p := range all {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.ch <- result{err: err}
	}
}

// size — сколько запросов в полёте (для статистики и тестов).
func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// ========================= correlation ids =========================

// nextRequestID — монотонный счётчик плюс метка времени: уникально на всё
// время жизни процесса, без повторного использования.
func (hw *HexWar) nextRequestID() string {
	n := atomic.AddUint64(&hw.reqSeq, 1)
	return fmt.Sprintf("%d-%d", n, time.Now().UnixMicro())
}
