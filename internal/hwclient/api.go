package hwclient

// ========================= high-level API =========================

// Player — участник матча из ответа get_players.
type Player struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Score  int    `json:"score"`
}

// Login входит на сервер и на успехе запоминает имя как identity сессии
// (дальше оно уходит в sender каждого кадра).
func (hw *HexWar) Login(name, password string) (*Envelope, error) {
	env := NewEnvelope("login")
	_ = env.Set("name", name)
	_ = env.Set("password", password)
	resp, err := hw.Request(env, 0)
	if err != nil {
		return nil, err
	}
	hw.SetIdentity(name)
	return resp, nil
}

// Register создаёт аккаунт; как и Login, на успехе задаёт identity.
func (hw *HexWar) Register(name, password string) (*Envelope, error) {
	env := NewEnvelope("register")
	_ = env.Set("name", name)
	_ = env.Set("password", password)
	resp, err := hw.Request(env, 0)
	if err != nil {
		return nil, err
	}
	hw.SetIdentity(name)
	return resp, nil
}

// Ping — проверка живости: ждёт pong.
func (hw *HexWar) Ping() error {
	_, err := hw.Request(NewEnvelope("ping"), 0)
	return err
}

// GetPlayers запрашивает текущий список игроков.
func (hw *HexWar) GetPlayers() ([]Player, error) {
	resp, err := hw.Request(NewEnvelope("get_players"), 0)
	if err != nil {
		return nil, err
	}
	var players []Player
	if err := resp.Get("players", &players); err != nil {
		return nil, err
	}
	return players, nil
}

// SendChat — сообщение в общий чат, без ожидания ответа.
func (hw *HexWar) SendChat(text string) error {
	env := NewEnvelope("chat")
	_ = env.Set("text", text)
	return hw.Send(env)
}

// BuildItem — заказ постройки. Ответа нет: сервер подтверждает push-ем
// item_built, подписывайтесь на PushItemBuilt.
func (hw *HexWar) BuildItem(item string) error {
	env := NewEnvelope("build_item")
	_ = env.Set("item", item)
	return hw.Send(env)
}

// Attack атакует клетку или игрока target и ждёт результата боя.
func (hw *HexWar) Attack(target string) (*Envelope, error) {
	env := NewEnvelope("attack")
	_ = env.Set("target", target)
	return hw.Request(env, 0)
}
