package roster

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hexwargame/hexwarbot/internal/hwclient"
)

// Roster следит за составом сервера по снимкам опроса: хранит watch-лист
// игроков и на каждом обновлении сравнивает текущий онлайн с предыдущим.
// Вход/выход отслеживаемого игрока уходит строкой в notify (туда вешается
// отправка в чат). Первый снимок только инициализирует состояние — без
// уведомлений, иначе при старте бот «объявит» всех, кто уже в игре.
type Roster struct {
	mu     sync.RWMutex
	watch  map[string]bool            // кого отслеживаем (по имени)
	last   map[string]hwclient.Player // последний снимок: только онлайн
	seeded bool

	notify func(string)
}

// New создает ростер; notify может быть nil — тогда уведомлений нет.
func New(notify func(string), names ...string) *Roster {
	watch := make(map[string]bool, len(names))
	for _, n := range names {
		watch[n] = true
	}
	return &Roster{
		watch:  watch,
		last:   map[string]hwclient.Player{},
		notify: notify,
	}
}

// Track добавляет игроков в watch-лист.
func (r *Roster) Track(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.watch[n] = true
	}
}

// Untrack убирает игрока из watch-листа.
func (r *Roster) Untrack(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watch, name)
}

// Tracked — отслеживаемые имена по алфавиту.
func (r *Roster) Tracked() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.watch))
	for n := range r.watch {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Update принимает свежий снимок игроков; сигнатура подходит прямо в
// hwclient.StartPolling. Offline-игрок в снимке равносилен отсутствующему.
func (r *Roster) Update(players []hwclient.Player) {
	cur := make(map[string]hwclient.Player, len(players))
	for _, p := range players {
		if p.Online {
			cur[p.Name] = p
		}
	}

	r.mu.Lock()
	prev := r.last
	first := !r.seeded
	r.seeded = true
	r.last = cur

	var msgs []string
	if !first {
		for name := range cur {
			if _, was := prev[name]; !was && r.watch[name] {
				msgs = append(msgs, fmt.Sprintf("➡ %s вошёл на сервер", name))
			}
		}
		for name := range prev {
			if _, is := cur[name]; !is && r.watch[name] {
				msgs = append(msgs, fmt.Sprintf("⬅ %s покинул сервер", name))
			}
		}
	}
	// уведомления после разблокировки: notify может дёргать методы ростера
	r.mu.Unlock()

	if r.notify != nil {
		sort.Strings(msgs)
		for _, m := range msgs {
			r.notify(m)
		}
	}
}

// IsOnline — текущее состояние всех отслеживаемых игроков на момент
// последнего снимка. true — игрок на сервере.
func (r *Roster) IsOnline() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := make(map[string]bool, len(r.watch))
	for name := range r.watch {
		_, online := r.last[name]
		status[name] = online
	}
	return status
}

// Score — очки игрока из последнего снимка; false, если его там нет.
func (r *Roster) Score(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.last[name]
	return p.Score, ok
}

// Online — все игроки последнего снимка, по убыванию очков.
func (r *Roster) Online() []hwclient.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]hwclient.Player, 0, len(r.last))
	for _, p := range r.last {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].Name < players[j].Name
	})
	return players
}

// FormatOnlineInfo собирает статус в строку для чата.
func (r *Roster) FormatOnlineInfo(players map[string]bool) string {
	var online, offline []string
	for name, isOnline := range players {
		if isOnline {
			online = append(online, name)
		} else {
			offline = append(offline, name)
		}
	}
	sort.Strings(online)
	sort.Strings(offline)
	return fmt.Sprintf("Онлайн: %s | Оффлайн: %s",
		strings.Join(online, ", "), strings.Join(offline, ", "))
}
