package hwclient

import (
	"encoding/json"
	"strings"
)

// readLoop читает кадры транспорта tr, пока тот жив. gen — поколение
// соединения: если клиент успел переключиться на новый транспорт, луп
// выходит молча и состояние не трогает. Разбор и доставка синхронные,
// поэтому кадры обрабатываются строго в порядке прихода с провода.
func (hw *HexWar) readLoop(tr Transport, gen uint64) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			hw.onReadLoopExit(gen, err)
			return
		}

		hw.mu.Lock()
		current := hw.gen == gen
		hw.mu.Unlock()
		if !current {
			// транспорт заменён, пока кадр был в пути — прошлая жизнь
			return
		}

		hw.framesIn.Add(1)
		hw.handleFrame(data)
	}
}

// handleFrame — один входящий кадр: разбор, затем либо вручение ответа
// адресату из таблицы, либо push подписчикам. Двойной доставки не бывает.
func (hw *HexWar) handleFrame(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// битый кадр никому не адресован: лог и мимо
		hw.parseErrors.Add(1)
		hw.log.Warn("unreadable frame", "err", err)
		if hw.OnError != nil {
			hw.OnError(err)
		}
		return
	}

	if env.RequestID != "" {
		if p := hw.pending.take(env.RequestID); p != nil {
			if env.Type == "error" {
				p.ch <- result{err: &ServerError{Message: env.GetString("message")}}
			} else {
				p.ch <- result{env: &env}
			}
			return
		}
		// request_id без адресата: либо ответ опоздал к таймауту, либо
		// стороны разошлись во мнениях, какие вызовы коррелированы.
		// Ничей future не трогаем, кадр уходит дальше как push.
		hw.anomalies.Add(1)
		hw.log.Warn("response with no matching request",
			"type", env.Type, "request_id", env.RequestID)
	} else if strings.HasSuffix(env.Type, "response") {
		// кадр в форме ответа, но без request_id — тоже аномалия;
		// логируем отдельно и всё же отдаём в общий канал, не роняя кадр
		hw.anomalies.Add(1)
		hw.log.Warn("response-shaped frame without request_id", "type", env.Type)
	}

	hw.dispatchPush(&env)
}
