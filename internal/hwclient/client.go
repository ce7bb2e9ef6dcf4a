package hwclient

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
)

// Config — настройки клиента. JSON-теги позволяют читать её прямо из
// conf/*.json; поля-связки (Dialer, Credentials, Logger) задаются кодом.
type Config struct {
	ServerURL string `json:"server_url"`

	// Сколько ждать ответ на коррелированный запрос. 0 — DefaultRequestTimeout.
	RequestTimeout time.Duration `json:"request_timeout"`
	// Интервал StartPolling по умолчанию. 0 — DefaultPollInterval.
	PollInterval time.Duration `json:"poll_interval"`

	// Реконнект: стартовая задержка, потолок и множитель роста.
	BackoffInitial time.Duration `json:"backoff_initial"`
	BackoffMax     time.Duration `json:"backoff_max"`
	BackoffGrowth  float64       `json:"backoff_growth"`
	// 0 — пытаться бесконечно.
	MaxReconnectAttempts int `json:"max_reconnect_attempts"`

	// Dialer устанавливает транспорт; по умолчанию DialWebSocket.
	Dialer Dialer `json:"-"`
	// Credentials — внешнее хранилище учётки для тихого релогина после
	// реконнекта. nil — релогин не выполняется.
	Credentials CredentialSource `json:"-"`
	// Logger — журнал движка; nil — slog.Default().
	Logger *slog.Logger `json:"-"`
}

// Значения по умолчанию.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultPollInterval   = 15 * time.Second
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 10 * time.Second
	DefaultBackoffGrowth  = 1.5
)

// Credentials — непрозрачный блоб учётных данных. Клиент его не
// разглядывает: прочитал у источника — передал в login.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CredentialSource отдаёт последнюю сохранённую учётку. Реализацию держит
// приложение (см. internal/credstore).
type CredentialSource interface {
	Credentials() (Credentials, error)
}

// Stats — счётчики работы клиента с момента создания.
type Stats struct {
	FramesIn    uint64 // принятых кадров (включая нераспознанные)
	FramesOut   uint64 // отправленных кадров
	Reconnects  uint64 // успешных повторных подключений
	Anomalies   uint64 // кадры-ответы без адресата
	ParseErrors uint64 // кадры, не разобравшиеся в Envelope
}

// HexWar — клиент сервера HexWar: одно WebSocket-соединение, поверх него
// запрос/ответ по request_id, push-события подписчикам, автоматический
// реконнект с backoff и тихий релогин.
type HexWar struct {
	cfg Config
	log *slog.Logger

	// mu охраняет состояние соединения; все переходы state сериализованы.
	mu       sync.Mutex
	state    connState
	tr       Transport
	gen      uint64 // поколение транспорта: отсекает read loop'ы отживших соединений
	attempt  *connectAttempt
	identity string

	wasEverConnected bool // после первого успеха не сбрасывается
	intentional      bool // закрытие было намеренным (Disconnect)

	reconnecting  bool
	reconnectStop chan struct{}

	bo *backoff.Backoff

	pending *pendingTable
	subs    *subscribers
	reqSeq  uint64

	// poller
	pollMu   sync.Mutex
	polling  bool
	pollStop chan struct{}

	framesIn    atomic.Uint64
	framesOut   atomic.Uint64
	reconnects  atomic.Uint64
	anomalies   atomic.Uint64
	parseErrors atomic.Uint64

	// "События" (колбэки-поля). Вызываются из горутин клиента — не блокировать.
	OnConnecting   func()
	OnConnected    func()
	OnDisconnected func()
	OnError        func(error)
}

// New создаёт клиент; соединение не открывает — см. Connect.
func New(cfg Config) *HexWar {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	if cfg.BackoffGrowth <= 1 {
		cfg.BackoffGrowth = DefaultBackoffGrowth
	}
	if cfg.Dialer == nil {
		cfg.Dialer = DialWebSocket
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &HexWar{
		cfg: cfg,
		log: log,
		bo: &backoff.Backoff{
			Min:    cfg.BackoffInitial,
			Max:    cfg.BackoffMax,
			Factor: cfg.BackoffGrowth,
		},
		pending: newPendingTable(),
		subs:    newSubscribers(),
	}
}

// IsConnected — транспорт открыт и жив.
func (hw *HexWar) IsConnected() bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.state == stateOpen
}

// State — текущее состояние соединения.
func (hw *HexWar) State() string {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.state.String()
}

// SetIdentity задаёт имя сессии: оно уходит в поле sender всех исходящих
// кадров. Login/Register делают это сами; вручную нужно, если identity
// приходит push-ем welcome.
func (hw *HexWar) SetIdentity(name string) {
	hw.mu.Lock()
	hw.identity = name
	hw.mu.Unlock()
}

// Identity — текущее имя сессии ("" — не аутентифицированы).
func (hw *HexWar) Identity() string {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.identity
}

// Stats — снимок счётчиков.
func (hw *HexWar) Stats() Stats {
	return Stats{
		FramesIn:    hw.framesIn.Load(),
		FramesOut:   hw.framesOut.Load(),
		Reconnects:  hw.reconnects.Load(),
		Anomalies:   hw.anomalies.Load(),
		ParseErrors: hw.parseErrors.Load(),
	}
}

// ========================= send / request =========================

// liveTransport — транспорт для отправки, либо ErrNotConnected.
func (hw *HexWar) liveTransport() (Transport, string, error) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.state != stateOpen || hw.tr == nil {
		return nil, "", ErrNotConnected
	}
	return hw.tr, hw.identity, nil
}

// Send — отправить кадр без ожидания ответа: без request_id, без записи в
// таблице. Очередей нет: нет соединения — сразу ErrNotConnected.
func (hw *HexWar) Send(env *Envelope) error {
	tr, sender, err := hw.liveTransport()
	if err != nil {
		return err
	}
	if env.Sender == "" && sender != "" {
		env.Sender = sender
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := tr.WriteMessage(data); err != nil {
		return err
	}
	hw.framesOut.Add(1)
	return nil
}

// Request — отправить кадр и дождаться ответа с тем же request_id.
// timeout <= 0 — RequestTimeout из конфига. Исход ровно один: ответ,
// кадр type:"error" (вернётся *ServerError), ErrRequestTimeout либо
// ErrConnectionLost/ErrClosed при падении или закрытии соединения.
func (hw *HexWar) Request(env *Envelope, timeout time.Duration) (*Envelope, error) {
	if timeout <= 0 {
		timeout = hw.cfg.RequestTimeout
	}
	tr, sender, err := hw.liveTransport()
	if err != nil {
		return nil, err
	}
	if env.Sender == "" && sender != "" {
		env.Sender = sender
	}
	env.RequestID = hw.nextRequestID()

	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	p := hw.pending.add(env.RequestID, timeout)
	if err := tr.WriteMessage(data); err != nil {
		// сеть упала между регистрацией и записью — подчищаем запись
		hw.pending.drop(env.RequestID)
		return nil, err
	}
	hw.framesOut.Add(1)

	res := <-p.ch
	return res.env, res.err
}
