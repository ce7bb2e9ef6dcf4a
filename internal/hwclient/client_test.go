package hwclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ========================= test doubles =========================

// fakeTransport — транспорт в памяти; тест играет роль сервера:
// nextFrame читает исходящие кадры клиента, push шлёт кадры клиенту,
// Close имитирует обрыв соединения.
type fakeTransport struct {
	in   chan []byte // сервер -> клиент
	out  chan []byte // клиент -> сервер
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 64),
		out:  make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case <-t.done:
		return nil, errors.New("fake transport closed")
	}
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("fake transport closed")
	}
	t.out <- data
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return nil
}

// push отправляет клиенту кадр от имени сервера. Errorf вместо Fatalf:
// помощников зовут и из серверных горутин теста.
func (t *fakeTransport) push(tb testing.TB, env *Envelope) {
	tb.Helper()
	data, err := json.Marshal(env)
	if err != nil {
		tb.Errorf("marshal push: %v", err)
		return
	}
	t.in <- data
}

// nextFrame ждёт следующий кадр от клиента. На таймауте тест помечается
// проваленным, а наружу уходит пустой кадр, чтобы вызывающий не упал.
func (t *fakeTransport) nextFrame(tb testing.TB) *Envelope {
	tb.Helper()
	select {
	case data := <-t.out:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			tb.Errorf("unmarshal client frame: %v", err)
			return &Envelope{}
		}
		return &env
	case <-time.After(2 * time.Second):
		tb.Errorf("no frame from client")
		return &Envelope{}
	}
}

// fakeDialer выдаёт фейковые транспорты и считает попытки.
type fakeDialer struct {
	mu    sync.Mutex
	dials int
	fails int           // сколько первых попыток вернуть с ошибкой
	gate  chan struct{} // если не nil, dial ждёт открытия
	made  []*fakeTransport
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Transport, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if n <= d.fails {
		return nil, errors.New("dial refused")
	}
	tr := newFakeTransport()
	d.made = append(d.made, tr)
	return tr, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.made) {
		return nil
	}
	return d.made[i]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient — клиент на фейковом транспорте с быстрым реконнектом.
func newTestClient(cfg Config) (*HexWar, *fakeDialer) {
	d := &fakeDialer{}
	cfg.ServerURL = "ws://test.invalid/ws"
	cfg.Dialer = d.dial
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	if cfg.BackoffInitial == 0 {
		cfg.BackoffInitial = 10 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 50 * time.Millisecond
	}
	return New(cfg), d
}

func mustConnect(t *testing.T, hw *HexWar) {
	t.Helper()
	if err := hw.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

// waitFor крутится, пока cond не станет true.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ========================= connection =========================

func TestConnectSingleTransportUnderConcurrency(t *testing.T) {
	hw, d := newTestClient(Config{})
	d.gate = make(chan struct{})

	const callers = 8
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			errs <- hw.Connect(context.Background())
		}()
	}

	// все должны сойтись в одну попытку, пока dial держится на воротах
	waitFor(t, time.Second, func() bool { return d.count() == 1 }, "first dial")
	time.Sleep(20 * time.Millisecond)
	if got := d.count(); got != 1 {
		t.Fatalf("dials while connecting = %d, want 1", got)
	}
	close(d.gate)

	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("connect #%d: %v", i, err)
		}
	}
	if got := d.count(); got != 1 {
		t.Fatalf("dials = %d, want exactly 1", got)
	}
	if !hw.IsConnected() {
		t.Fatalf("client not connected after Connect")
	}
}

func TestConnectWhenOpenIsNoop(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	mustConnect(t, hw)
	if got := d.count(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}
}

func TestConnectFailureLeavesIdle(t *testing.T) {
	hw, d := newTestClient(Config{})
	d.fails = 1

	if err := hw.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	if hw.IsConnected() {
		t.Fatalf("connected after failed dial")
	}
	// явный Connect не ретраится сам: второй вызов — вторая попытка
	mustConnect(t, hw)
	if got := d.count(); got != 2 {
		t.Fatalf("dials = %d, want 2", got)
	}
}

func TestSendRequestWithoutConnection(t *testing.T) {
	hw, _ := newTestClient(Config{})
	if err := hw.Send(NewEnvelope("tick")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send err = %v, want ErrNotConnected", err)
	}
	if _, err := hw.Request(NewEnvelope("ping"), time.Second); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Request err = %v, want ErrNotConnected", err)
	}
}

// ========================= request/response =========================

func TestRequestResolvesWithMatchingResponse(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	go func() {
		req := tr.nextFrame(t)
		if req.Type != "ping" || req.RequestID == "" {
			return
		}
		pong := NewEnvelope("pong")
		pong.RequestID = req.RequestID
		tr.push(t, pong)
	}()

	resp, err := hw.Request(NewEnvelope("ping"), time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Type != "pong" {
		t.Fatalf("resp type = %q, want pong", resp.Type)
	}
	if hw.pending.size() != 0 {
		t.Fatalf("pending left = %d, want 0", hw.pending.size())
	}
}

func TestRequestsCorrelateByID(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	// два запроса в полёте; сервер отвечает в обратном порядке
	go func() {
		first := tr.nextFrame(t)
		second := tr.nextFrame(t)
		for _, req := range []*Envelope{second, first} {
			resp := NewEnvelope("attack_response")
			resp.RequestID = req.RequestID
			_ = resp.Set("target", req.GetString("target"))
			tr.push(t, resp)
		}
	}()

	type res struct {
		target string
		resp   *Envelope
		err    error
	}
	results := make(chan res, 2)
	for _, target := range []string{"b4", "c7"} {
		go func(target string) {
			env := NewEnvelope("attack")
			_ = env.Set("target", target)
			r, err := hw.Request(env, time.Second)
			results <- res{target: target, resp: r, err: err}
		}(target)
	}

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("request %s: %v", r.target, r.err)
		}
		if got := r.resp.GetString("target"); got != r.target {
			t.Fatalf("response for %q got %q: answers crossed", r.target, got)
		}
	}
}

func TestFireAndForgetMakesNoTableEntry(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	if err := hw.Send(NewEnvelope("tick")); err != nil {
		t.Fatalf("send: %v", err)
	}
	frame := tr.nextFrame(t)
	if frame.Type != "tick" {
		t.Fatalf("frame type = %q, want tick", frame.Type)
	}
	if frame.RequestID != "" {
		t.Fatalf("fire-and-forget frame carries request_id %q", frame.RequestID)
	}
	if hw.pending.size() != 0 {
		t.Fatalf("pending = %d, want 0", hw.pending.size())
	}
}

func TestRequestServerRejection(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	go func() {
		req := tr.nextFrame(t)
		reject := NewEnvelope("error")
		reject.RequestID = req.RequestID
		_ = reject.Set("message", "not enough mana")
		tr.push(t, reject)
	}()

	_, err := hw.Request(NewEnvelope("attack"), time.Second)
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
	if serr.Message != "not enough mana" {
		t.Fatalf("server message = %q", serr.Message)
	}
}

func TestRequestTimeoutRemovesEntry(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	req := make(chan *Envelope, 1)
	go func() { req <- tr.nextFrame(t) }()

	_, err := hw.Request(NewEnvelope("ping"), 50*time.Millisecond)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("err = %v, want ErrRequestTimeout", err)
	}
	if hw.pending.size() != 0 {
		t.Fatalf("entry still in table after timeout")
	}

	// опоздавший ответ никого не находит: только счётчик аномалий
	late := NewEnvelope("pong")
	late.RequestID = (<-req).RequestID
	tr.push(t, late)
	waitFor(t, time.Second, func() bool { return hw.Stats().Anomalies == 1 }, "anomaly counter")
}

func TestRequestDefaultTimeoutFromConfig(t *testing.T) {
	hw, _ := newTestClient(Config{RequestTimeout: 40 * time.Millisecond})
	mustConnect(t, hw)

	start := time.Now()
	_, err := hw.Request(NewEnvelope("ping"), 0)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("err = %v, want ErrRequestTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("default timeout did not apply, waited %v", elapsed)
	}
}

// ========================= disconnect =========================

func TestDisconnectRejectsPendingAndSkipsReconnect(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	const inflight = 3
	errs := make(chan error, inflight)
	for i := 0; i < inflight; i++ {
		go func() {
			_, err := hw.Request(NewEnvelope("ping"), 5*time.Second)
			errs <- err
		}()
	}
	for i := 0; i < inflight; i++ {
		tr.nextFrame(t)
	}

	hw.Disconnect()

	for i := 0; i < inflight; i++ {
		if err := <-errs; !errors.Is(err, ErrClosed) {
			t.Fatalf("pending request err = %v, want ErrClosed", err)
		}
	}

	// намеренное закрытие: реконнект не планируется
	time.Sleep(100 * time.Millisecond)
	if got := d.count(); got != 1 {
		t.Fatalf("dials after Disconnect = %d, want 1", got)
	}
	if hw.IsConnected() {
		t.Fatalf("still connected after Disconnect")
	}
}

func TestConnectionLossRejectsPendingAndReconnects(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	errCh := make(chan error, 1)
	go func() {
		_, err := hw.Request(NewEnvelope("ping"), 5*time.Second)
		errCh <- err
	}()
	tr.nextFrame(t)

	// сервер оборвал соединение
	_ = tr.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrConnectionLost) {
			t.Fatalf("pending err = %v, want ErrConnectionLost", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pending request not rejected on connection loss")
	}

	waitFor(t, 2*time.Second, hw.IsConnected, "reconnect")
	if d.count() < 2 {
		t.Fatalf("dials = %d, want reconnect dial", d.count())
	}
	if hw.Stats().Reconnects == 0 {
		t.Fatalf("reconnect not counted")
	}
	hw.Disconnect()
}

func TestLateResponseAfterLossMatchesNothing(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	errCh := make(chan error, 1)
	go func() {
		_, err := hw.Request(NewEnvelope("ping"), 5*time.Second)
		errCh <- err
	}()
	req := tr.nextFrame(t)
	_ = tr.Close()
	if err := <-errCh; !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("err = %v, want ErrConnectionLost", err)
	}

	waitFor(t, 2*time.Second, hw.IsConnected, "reconnect")
	tr2 := d.transport(d.count() - 1)

	// «ответ» на погибший запрос по новому соединению — никому
	late := NewEnvelope("pong")
	late.RequestID = req.RequestID
	tr2.push(t, late)
	waitFor(t, time.Second, func() bool { return hw.Stats().Anomalies >= 1 }, "anomaly counter")
	hw.Disconnect()
}

// ========================= reauth =========================

// countingCreds — источник учётки, считающий обращения.
type countingCreds struct {
	mu    sync.Mutex
	calls int
	creds Credentials
}

func (c *countingCreds) Credentials() (Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.creds, nil
}

func (c *countingCreds) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestReauthRunsOnReconnectOnly(t *testing.T) {
	src := &countingCreds{creds: Credentials{Name: "ares", Password: "pw"}}
	hw, d := newTestClient(Config{Credentials: src})
	mustConnect(t, hw)

	// первый коннект: никакого релогина
	time.Sleep(50 * time.Millisecond)
	if got := src.count(); got != 0 {
		t.Fatalf("credentials read %d times after first connect, want 0", got)
	}

	// обрыв → реконнект → ровно один тихий login
	_ = d.transport(0).Close()
	waitFor(t, time.Second, func() bool { return !hw.IsConnected() }, "loss noticed")
	waitFor(t, 2*time.Second, hw.IsConnected, "reconnect")
	tr2 := d.transport(d.count() - 1)

	login := tr2.nextFrame(t)
	if login.Type != "login" {
		t.Fatalf("first frame after reconnect = %q, want login", login.Type)
	}
	if login.GetString("name") != "ares" || login.GetString("password") != "pw" {
		t.Fatalf("login replayed wrong credentials")
	}
	resp := NewEnvelope("login_response")
	resp.RequestID = login.RequestID
	tr2.push(t, resp)

	waitFor(t, time.Second, func() bool { return hw.Identity() == "ares" }, "identity after reauth")
	if got := src.count(); got != 1 {
		t.Fatalf("credentials read %d times, want exactly 1", got)
	}
	hw.Disconnect()
}

func TestReauthFailureKeepsConnectionOpen(t *testing.T) {
	src := &countingCreds{creds: Credentials{Name: "ares", Password: "stale"}}
	hw, d := newTestClient(Config{Credentials: src})
	mustConnect(t, hw)

	_ = d.transport(0).Close()
	waitFor(t, time.Second, func() bool { return !hw.IsConnected() }, "loss noticed")
	waitFor(t, 2*time.Second, hw.IsConnected, "reconnect")
	tr2 := d.transport(d.count() - 1)

	login := tr2.nextFrame(t)
	reject := NewEnvelope("error")
	reject.RequestID = login.RequestID
	_ = reject.Set("message", "bad password")
	tr2.push(t, reject)

	// неудачный релогин не роняет соединение
	time.Sleep(50 * time.Millisecond)
	if !hw.IsConnected() {
		t.Fatalf("connection dropped after failed reauth")
	}
	if hw.Identity() != "" {
		t.Fatalf("identity set despite failed reauth")
	}
	hw.Disconnect()
}

// ========================= identity =========================

func TestLoginSetsIdentityAndSender(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	go func() {
		req := tr.nextFrame(t)
		resp := NewEnvelope("login_response")
		resp.RequestID = req.RequestID
		tr.push(t, resp)
	}()
	if _, err := hw.Login("ares", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if hw.Identity() != "ares" {
		t.Fatalf("identity = %q, want ares", hw.Identity())
	}

	if err := hw.SendChat("hi"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	frame := tr.nextFrame(t)
	if frame.Sender != "ares" {
		t.Fatalf("sender = %q, want ares", frame.Sender)
	}
}

// ========================= pushes =========================

func TestPushRoutedToSubscriberNotPending(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	got := make(chan *Envelope, 1)
	unsub := hw.Subscribe(PushNotification, func(e *Envelope) { got <- e })
	defer unsub()

	note := NewEnvelope("notification")
	_ = note.Set("text", "storm incoming")
	tr.push(t, note)

	select {
	case e := <-got:
		if e.GetString("text") != "storm incoming" {
			t.Fatalf("push payload lost")
		}
	case <-time.After(time.Second):
		t.Fatalf("push not delivered")
	}
	if hw.pending.size() != 0 {
		t.Fatalf("push created a pending entry")
	}
}

func TestUnknownPushGoesToCatchAll(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	got := make(chan *Envelope, 1)
	unsub := hw.Subscribe(PushUnknown, func(e *Envelope) { got <- e })
	defer unsub()

	tr.push(t, NewEnvelope("season_reset"))

	select {
	case e := <-got:
		if e.Type != "season_reset" {
			t.Fatalf("catch-all got %q", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("unknown push dropped")
	}
}

func TestResponseShapedPushIsAnomaly(t *testing.T) {
	hw, d := newTestClient(Config{})
	mustConnect(t, hw)
	tr := d.transport(0)

	got := make(chan *Envelope, 1)
	unsub := hw.Subscribe(PushUnknown, func(e *Envelope) { got <- e })
	defer unsub()

	tr.push(t, NewEnvelope("players_response"))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("anomalous frame was dropped instead of forwarded")
	}
	if hw.Stats().Anomalies != 1 {
		t.Fatalf("anomalies = %d, want 1", hw.Stats().Anomalies)
	}
}

// ========================= backoff =========================

func TestBackoffScheduleMatchesGrowth(t *testing.T) {
	hw := New(Config{
		ServerURL:      "ws://test.invalid/ws",
		BackoffInitial: time.Second,
		BackoffMax:     10 * time.Second,
		BackoffGrowth:  1.5,
		Logger:         quietLogger(),
	})

	want := []time.Duration{
		1000 * time.Millisecond,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
	}
	for i, w := range want {
		if got := hw.bo.Duration(); got != w {
			t.Fatalf("attempt %d delay = %v, want %v", i+1, got, w)
		}
	}
	hw.bo.Reset()
	if got := hw.bo.Duration(); got != time.Second {
		t.Fatalf("after reset delay = %v, want 1s", got)
	}
}

func TestBackoffCapsAtMax(t *testing.T) {
	hw := New(Config{
		ServerURL:      "ws://test.invalid/ws",
		BackoffInitial: time.Second,
		BackoffMax:     10 * time.Second,
		BackoffGrowth:  1.5,
		Logger:         quietLogger(),
	})
	var last time.Duration
	for i := 0; i < 20; i++ {
		last = hw.bo.Duration()
	}
	if last != 10*time.Second {
		t.Fatalf("delay after many attempts = %v, want cap 10s", last)
	}
}

func TestReconnectStopsAfterMaxAttempts(t *testing.T) {
	hw, d := newTestClient(Config{MaxReconnectAttempts: 2})
	mustConnect(t, hw)

	d.mu.Lock()
	d.fails = 1 << 30 // все последующие dial-ы проваливаются
	d.mu.Unlock()
	_ = d.transport(0).Close()

	waitFor(t, 2*time.Second, func() bool { return d.count() >= 3 }, "two reconnect attempts")
	time.Sleep(150 * time.Millisecond)
	if got := d.count(); got != 3 {
		t.Fatalf("dials = %d, want 3 (connect + 2 attempts)", got)
	}
	if hw.IsConnected() {
		t.Fatalf("connected with failing dialer")
	}
}

func TestReconnectSurvivesEarlyLossAfterReopen(t *testing.T) {
	hw, d := newTestClient(Config{})

	// мигающий сервер: на втором подключении соединение рвётся прямо из
	// OnConnected — цикл реконнекта ещё не вернулся, а транспорт уже мёртв.
	// Следующая потеря обязана поднять свежий цикл, не дожидаясь старого.
	var conns atomic.Int32
	hw.OnConnected = func() {
		if conns.Add(1) == 2 {
			_ = d.transport(1).Close()
			time.Sleep(30 * time.Millisecond)
		}
	}

	mustConnect(t, hw)
	_ = d.transport(0).Close()

	waitFor(t, 2*time.Second, func() bool {
		return d.count() >= 3 && hw.IsConnected()
	}, "recovery after loss inside connected callback")
}

func TestDisconnectCancelsScheduledReconnect(t *testing.T) {
	hw, d := newTestClient(Config{
		BackoffInitial: 100 * time.Millisecond,
		BackoffMax:     100 * time.Millisecond,
	})
	mustConnect(t, hw)

	_ = d.transport(0).Close()
	waitFor(t, time.Second, func() bool { return !hw.IsConnected() }, "loss noticed")

	// Disconnect внутри backoff-паузы: запланированная попытка отменяется
	hw.Disconnect()
	time.Sleep(250 * time.Millisecond)
	if got := d.count(); got != 1 {
		t.Fatalf("dials after disconnect = %d, want 1", got)
	}

	// клиент остаётся пригодным: новый Connect и новая потеря соединения
	// снова запускают реконнект
	mustConnect(t, hw)
	_ = d.transport(1).Close()
	waitFor(t, 2*time.Second, func() bool {
		return d.count() >= 3 && hw.IsConnected()
	}, "reconnect after disconnect and fresh connect")
}

func TestConnectDuringReconnectBackoffTakesOver(t *testing.T) {
	hw, d := newTestClient(Config{
		BackoffInitial: 100 * time.Millisecond,
		BackoffMax:     100 * time.Millisecond,
	})
	mustConnect(t, hw)

	_ = d.transport(0).Close()
	waitFor(t, time.Second, func() bool { return !hw.IsConnected() }, "loss noticed")

	// явный Connect внутри backoff-паузы строит транспорт сам; спящий цикл
	// замечает открытие и молча уходит, лишней попытки не будет
	mustConnect(t, hw)
	if got := d.count(); got != 2 {
		t.Fatalf("dials = %d, want 2", got)
	}

	time.Sleep(250 * time.Millisecond)
	if got := d.count(); got != 2 {
		t.Fatalf("dials after backoff window = %d, want still 2", got)
	}
	if !hw.IsConnected() {
		t.Fatalf("client not connected after explicit reconnect")
	}
}
