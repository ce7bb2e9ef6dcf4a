package hwclient

import (
	"fmt"
	"time"
)

// ========================= polling =========================

// StartPolling запускает фоновый опрос списка игроков: один запрос сразу,
// дальше по тикеру. Успешные результаты уходят в sink; любые ошибки
// (нет соединения, таймаут, отказ) молча поглощаются — восстановлением
// занимается реконнект, опрос просто ждёт следующего тика. Повторный
// запуск при живом опросе — no-op. interval <= 0 — PollInterval из конфига.
func (hw *HexWar) StartPolling(interval time.Duration, sink func([]Player)) error {
	if sink == nil {
		return fmt.Errorf("poll: sink is nil")
	}
	if interval <= 0 {
		interval = hw.cfg.PollInterval
	}

	hw.pollMu.Lock()
	if hw.polling {
		hw.pollMu.Unlock()
		return nil
	}
	hw.polling = true
	stop := make(chan struct{})
	hw.pollStop = stop
	hw.pollMu.Unlock()

	go hw.pollLoop(interval, sink, stop)
	return nil
}

// StopPolling останавливает опрос; повторные вызовы безвредны.
func (hw *HexWar) StopPolling() {
	hw.pollMu.Lock()
	defer hw.pollMu.Unlock()
	if !hw.polling {
		return
	}
	hw.polling = false
	close(hw.pollStop)
	hw.pollStop = nil
}

func (hw *HexWar) pollLoop(interval time.Duration, sink func([]Player), stop chan struct{}) {
	// первый опрос сразу, не дожидаясь тика
	if players, err := hw.GetPlayers(); err == nil {
		sink(players)
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !hw.IsConnected() {
				// в разрыве не дёргаем отправку зря — ждём реконнекта
				continue
			}
			players, err := hw.GetPlayers()
			if err != nil {
				// сеть/таймаут/отказ — молча ждём следующий тик
				continue
			}
			sink(players)
		}
	}
}
