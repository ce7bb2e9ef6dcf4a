package hwclient

import "sync"

// ========================= push events =========================

// PushKind — вид серверного push-события. Закрытое множество плюс
// PushUnknown: незнакомые типы не теряются, а уходят в общий канал —
// новые сообщения сервера не ломают старых клиентов.
type PushKind int

const (
	PushUnknown PushKind = iota // всё, что не распознали: сырой кадр как есть
	PushWelcome                 // приветствие сервера, может нести имя сессии
	PushChat                    // сообщение чата от другого игрока
	PushNotification
	PushItemBuilt // подтверждение постройки (build_item шлётся без ожидания)
	PushBattleStarted
	PushBattleEnded
	PushAttackPhase
)

func (k PushKind) String() string {
	switch k {
	case PushWelcome:
		return "welcome"
	case PushChat:
		return "chat"
	case PushNotification:
		return "notification"
	case PushItemBuilt:
		return "item_built"
	case PushBattleStarted:
		return "battle_started"
	case PushBattleEnded:
		return "battle_ended"
	case PushAttackPhase:
		return "attack_phase"
	default:
		return "unknown"
	}
}

// classifyPush — тип кадра → вид события.
func classifyPush(typ string) PushKind {
	switch typ {
	case "welcome":
		return PushWelcome
	case "chat":
		return PushChat
	case "notification":
		return PushNotification
	case "item_built":
		return PushItemBuilt
	case "battle_started":
		return PushBattleStarted
	case "battle_ended":
		return PushBattleEnded
	case "attack_phase":
		return PushAttackPhase
	default:
		return PushUnknown
	}
}

// pushSub — одна подписка; id нужен для идемпотентной отписки.
type pushSub struct {
	id int
	fn func(*Envelope)
}

type subscribers struct {
	mu     sync.Mutex
	nextID int
	subs   map[PushKind][]pushSub
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[PushKind][]pushSub)}
}

func (s *subscribers) add(kind PushKind, fn func(*Envelope)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[kind] = append(s.subs[kind], pushSub{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[kind]
		for i := range list {
			if list[i].id == id {
				s.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// snapshot — копия списка подписчиков, чтобы не держать мьютекс во время
// вызова пользовательского кода.
func (s *subscribers) snapshot(kind PushKind) []func(*Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[kind]
	if len(list) == 0 {
		return nil
	}
	fns := make([]func(*Envelope), len(list))
	for i := range list {
		fns[i] = list[i].fn
	}
	return fns
}

// Subscribe подписывает fn на события вида kind и возвращает функцию
// отписки (повторный вызов безвреден). Доставка синхронная, из горутины
// чтения: порядок прихода с провода сохраняется, поэтому обработчики не
// должны блокироваться надолго.
func (hw *HexWar) Subscribe(kind PushKind, fn func(*Envelope)) (unsubscribe func()) {
	return hw.subs.add(kind, fn)
}

// dispatchPush доставляет push подписчикам его вида. Кадр с
// request_id сюда не попадает, если нашёлся адресат в таблице запросов.
func (hw *HexWar) dispatchPush(env *Envelope) {
	kind := classifyPush(env.Type)
	for _, fn := range hw.subs.snapshot(kind) {
		fn(env)
	}
}
