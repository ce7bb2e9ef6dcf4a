package hwclient

import (
	"encoding/json"
	"fmt"
)

// ========================= wire envelope =========================

// Envelope — один JSON-кадр протокола HexWar. На проводе это плоский
// объект: {"type":"login","request_id":"7-1712345","name":"ares",...}.
// Type обязателен всегда; RequestID есть только у запрос/ответ-пар;
// Sender проставляется клиентом после логина. Всё остальное лежит в
// Fields как сырые json-значения — клиент маршрутизирует по форме кадра
// и не трогает полезную нагрузку.
type Envelope struct {
	Type      string
	RequestID string
	Sender    string
	Fields    map[string]json.RawMessage
}

// NewEnvelope — кадр заданного типа без полей.
func NewEnvelope(typ string) *Envelope {
	return &Envelope{Type: typ, Fields: make(map[string]json.RawMessage)}
}

// Set кладёт поле полезной нагрузки. Ключи type/request_id/sender
// зарезервированы за конвертом.
func (e *Envelope) Set(key string, v any) error {
	switch key {
	case "type", "request_id", "sender":
		return fmt.Errorf("envelope: reserved key %q", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if e.Fields == nil {
		e.Fields = make(map[string]json.RawMessage)
	}
	e.Fields[key] = b
	return nil
}

// Get разбирает поле полезной нагрузки в out.
func (e *Envelope) Get(key string, out any) error {
	raw, ok := e.Fields[key]
	if !ok {
		return fmt.Errorf("envelope: no field %q", key)
	}
	return json.Unmarshal(raw, out)
}

// GetString — удобный доступ к строковому полю; пустая строка, если поля
// нет или оно не строка.
func (e *Envelope) GetString(key string) string {
	var s string
	if err := e.Get(key, &s); err != nil {
		return ""
	}
	return s
}

// Has сообщает, есть ли поле полезной нагрузки.
func (e *Envelope) Has(key string) bool {
	_, ok := e.Fields[key]
	return ok
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("envelope: empty type")
	}
	flat := make(map[string]json.RawMessage, len(e.Fields)+3)
	for k, v := range e.Fields {
		flat[k] = v
	}
	// служебные ключи поверх — им нельзя потеряться
	t, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	flat["type"] = t
	if e.RequestID != "" {
		id, err := json.Marshal(e.RequestID)
		if err != nil {
			return nil, err
		}
		flat["request_id"] = id
	}
	if e.Sender != "" {
		s, err := json.Marshal(e.Sender)
		if err != nil {
			return nil, err
		}
		flat["sender"] = s
	}
	return json.Marshal(flat)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	raw, ok := flat["type"]
	if !ok {
		return fmt.Errorf("envelope: frame without type")
	}
	if err := json.Unmarshal(raw, &e.Type); err != nil || e.Type == "" {
		return fmt.Errorf("envelope: bad type field")
	}
	delete(flat, "type")

	e.RequestID = ""
	if raw, ok := flat["request_id"]; ok {
		if err := json.Unmarshal(raw, &e.RequestID); err != nil {
			return fmt.Errorf("envelope: bad request_id field")
		}
		delete(flat, "request_id")
	}
	e.Sender = ""
	if raw, ok := flat["sender"]; ok {
		// sender нам только мешать не должен: не строка — оставим пустым
		_ = json.Unmarshal(raw, &e.Sender)
		delete(flat, "sender")
	}
	e.Fields = flat
	return nil
}
