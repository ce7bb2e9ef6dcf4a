package hwclient

import (
	"context"
	"time"
)

// ========================= connection lifecycle =========================

// connState — состояние соединения. Переходы только под hw.mu.
type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateOpen
	stateClosing
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	default:
		return "invalid"
	}
}

// connectAttempt — общая «будущая» попытка подключения: все, кто позвал
// Connect во время connecting, ждут один и тот же done.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Connect доводит соединение до open и возвращается. Уже open — сразу nil.
// Если подключение уже идёт, вызов присоединяется к той же попытке:
// больше одного транспорта одновременно не строится никогда. Из
// idle/closing начинается свежая попытка; старый транспорт, если остался,
// снимается (его read loop отсекается поколением).
func (hw *HexWar) Connect(ctx context.Context) error {
	hw.mu.Lock()
	switch hw.state {
	case stateOpen:
		hw.mu.Unlock()
		return nil
	case stateConnecting:
		att := hw.attempt
		hw.mu.Unlock()
		select {
		case <-att.done:
			return att.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// idle или closing: намеренное закрытие снято, старый транспорт долой.
	// Поколение растёт при отцеплении: read loop старого транспорта уже
	// никому ничего не доставит и не тронет состояние.
	hw.intentional = false
	old := hw.tr
	if old != nil {
		hw.tr = nil
		hw.gen++
	}
	att := &connectAttempt{done: make(chan struct{})}
	hw.attempt = att
	hw.state = stateConnecting
	hw.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if hw.OnConnecting != nil {
		hw.OnConnecting()
	}
	return hw.establish(ctx, att)
}

// establish выполняет dial и завершает попытку att. Вызывается без mu.
// На успехе стартует read loop, на реконнекте — ровно один тихий релогин.
func (hw *HexWar) establish(ctx context.Context, att *connectAttempt) error {
	tr, err := hw.cfg.Dialer(ctx, hw.cfg.ServerURL)

	hw.mu.Lock()
	var stale Transport
	if err == nil && hw.intentional {
		// Disconnect прилетел, пока шёл dial: свежий транспорт не нужен
		stale, tr = tr, nil
		err = ErrClosed
	}
	if err != nil {
		hw.state = stateIdle
		hw.attempt = nil
		att.err = err
		close(att.done)
		hw.mu.Unlock()
		if stale != nil {
			_ = stale.Close()
		}
		return err
	}

	hw.tr = tr
	hw.gen++
	gen := hw.gen
	hw.state = stateOpen
	hw.attempt = nil
	isReconnect := hw.wasEverConnected
	hw.wasEverConnected = true
	hw.bo.Reset()
	// с этого момента реконнектом не владеет никто: если соединение умрёт
	// прямо сейчас (хоть внутри OnConnected), scheduleReconnect поднимет
	// свежий цикл, не дожидаясь, пока старый доживёт до своего defer.
	hw.reconnecting = false
	if hw.reconnectStop != nil {
		close(hw.reconnectStop)
		hw.reconnectStop = nil
	}
	close(att.done)
	hw.mu.Unlock()

	go hw.readLoop(tr, gen)

	if isReconnect {
		hw.reconnects.Add(1)
		hw.log.Info("reconnected", "url", hw.cfg.ServerURL)
	}
	if hw.OnConnected != nil {
		hw.OnConnected()
	}
	// релогин — только после реконнекта, первый вход делает приложение
	if isReconnect && hw.cfg.Credentials != nil {
		go hw.reauthenticate()
	}
	return nil
}

// Disconnect закрывает соединение намеренно: запланированный реконнект
// отменяется, все запросы в полёте получают ErrClosed, автоперезапуска не
// будет. Безопасен в любом состоянии.
func (hw *HexWar) Disconnect() {
	hw.mu.Lock()
	hw.intentional = true
	hw.reconnecting = false
	if hw.reconnectStop != nil {
		close(hw.reconnectStop)
		hw.reconnectStop = nil
	}
	tr := hw.tr
	if tr != nil && hw.state == stateOpen {
		hw.state = stateClosing
	}
	hw.mu.Unlock()

	hw.pending.failAll(ErrClosed)
	if tr != nil {
		// read loop заметит закрытие и доведёт состояние до idle
		_ = tr.Close()
	}
}

// onReadLoopExit — транспорт умер или закрыт. Стале-луп чужого поколения
// сюда не доходит (проверка в readLoop). Ненамеренное закрытие запускает
// реконнект.
func (hw *HexWar) onReadLoopExit(gen uint64, readErr error) {
	hw.mu.Lock()
	if gen != hw.gen {
		// транспорт уже заменён — событие принадлежит прошлой жизни
		hw.mu.Unlock()
		return
	}
	if hw.tr != nil {
		_ = hw.tr.Close()
		hw.tr = nil
	}
	wasIntentional := hw.intentional
	hw.state = stateIdle
	hw.mu.Unlock()

	if wasIntentional {
		hw.pending.failAll(ErrClosed)
	} else {
		hw.pending.failAll(ErrConnectionLost)
		if readErr != nil && hw.OnError != nil {
			hw.OnError(readErr)
		}
		hw.log.Warn("connection lost", "err", readErr)
	}
	if hw.OnDisconnected != nil {
		hw.OnDisconnected()
	}
	if !wasIntentional {
		hw.scheduleReconnect()
	}
}

// scheduleReconnect поднимает горутину реконнекта, если она ещё не крутится.
func (hw *HexWar) scheduleReconnect() {
	hw.mu.Lock()
	if hw.reconnecting || hw.intentional {
		hw.mu.Unlock()
		return
	}
	hw.reconnecting = true
	stop := make(chan struct{})
	hw.reconnectStop = stop
	hw.mu.Unlock()

	go hw.reconnectLoop(stop)
}

// reconnectLoop пытается восстановить соединение: задержка по backoff
// (растёт на множитель до потолка), попытки строго последовательные,
// до успеха, Disconnect'а или исчерпания MaxReconnectAttempts.
func (hw *HexWar) reconnectLoop(stop chan struct{}) {
	defer func() {
		// флаги чистим, только пока цикл ещё владеет реконнектом: после
		// успешного open владение снято в establish, и преемника, поднятого
		// следующей потерей соединения, трогать нельзя
		hw.mu.Lock()
		if hw.reconnectStop == stop {
			hw.reconnecting = false
			hw.reconnectStop = nil
		}
		hw.mu.Unlock()
	}()

	attempts := 0
	for {
		// bo разделён с establish (Reset на успехе) — трогаем под мьютексом
		hw.mu.Lock()
		delay := hw.bo.Duration()
		hw.mu.Unlock()
		hw.log.Info("reconnect scheduled", "delay", delay, "attempt", attempts+1)
		select {
		case <-stop:
			return
		case <-time.After(delay):
		}

		hw.mu.Lock()
		if hw.intentional || hw.reconnectStop != stop {
			hw.mu.Unlock()
			return
		}
		if hw.state == stateOpen {
			hw.mu.Unlock()
			return
		}
		if hw.state == stateConnecting {
			// параллельный явный Connect уже строит транспорт — ждём его
			att := hw.attempt
			hw.mu.Unlock()
			select {
			case <-att.done:
			case <-stop:
				return
			}
			if att.err == nil {
				return
			}
			continue
		}
		att := &connectAttempt{done: make(chan struct{})}
		hw.attempt = att
		hw.state = stateConnecting
		hw.mu.Unlock()

		if hw.OnConnecting != nil {
			hw.OnConnecting()
		}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-stop:
				cancel()
			case <-att.done:
				cancel()
			}
		}()
		err := hw.establish(ctx, att)
		if err == nil {
			return
		}
		attempts++
		hw.log.Warn("reconnect failed", "attempt", attempts, "err", err)
		if hw.cfg.MaxReconnectAttempts > 0 && attempts >= hw.cfg.MaxReconnectAttempts {
			hw.log.Warn("reconnect attempts exhausted", "attempts", attempts)
			return
		}
	}
}

// reauthenticate — тихий повтор логина после реконнекта. Одна попытка:
// неудача пишется в журнал, соединение остаётся открытым (следующие
// авторизованные запросы отверг сам сервер).
func (hw *HexWar) reauthenticate() {
	creds, err := hw.cfg.Credentials.Credentials()
	if err != nil {
		hw.log.Warn("reauth: credentials unavailable", "err", err)
		return
	}
	if _, err := hw.Login(creds.Name, creds.Password); err != nil {
		hw.log.Warn("reauth failed", "name", creds.Name, "err", err)
		return
	}
	hw.log.Info("reauthenticated", "name", creds.Name)
}
