package warbot

import (
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/hexwargame/hexwarbot/internal/hwclient"
)

// battleAlert — реакция на боевое событие: сообщение в чат и, по желанию,
// звуковой колбэк.
type battleAlert struct {
	msg      string
	callback func()
}

// события, на которые можно повесить alert
var battleEvents = map[string]bool{
	"battle_started": true,
	"battle_ended":   true,
	"attack_phase":   true,
}

// SetAlert вешает оповещение на боевое событие event.
func (bot *HexWarBot) SetAlert(event, msg string, cb func()) error {
	if !battleEvents[event] {
		return fmt.Errorf("неизвестное событие %q (battle_started|battle_ended|attack_phase)", event)
	}
	bot.mu.Lock()
	bot.alerts[event] = battleAlert{msg: msg, callback: cb}
	bot.mu.Unlock()
	return nil
}

// DeleteAlert снимает оповещение с события.
func (bot *HexWarBot) DeleteAlert(event string) {
	bot.mu.Lock()
	delete(bot.alerts, event)
	bot.mu.Unlock()
}

// AlertEvents — события с настроенными оповещениями, по алфавиту.
func (bot *HexWarBot) AlertEvents() []string {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	events := make([]string, 0, len(bot.alerts))
	for ev := range bot.alerts {
		events = append(events, ev)
	}
	sort.Strings(events)
	return events
}

func (bot *HexWarBot) alert(event string) battleAlert {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	return bot.alerts[event]
}

// handleBattleEvent — push боевого события. Всегда пишется в журнал; если
// на событие настроен alert — уходит сообщение в чат и звук.
func (bot *HexWarBot) handleBattleEvent(env *hwclient.Envelope) {
	bot.mu.Lock()
	alert, watched := bot.alerts[env.Type]
	bot.mu.Unlock()

	cell := env.GetString("cell")
	log.Printf("[battle] %s %s", env.Type, cell)

	if !watched {
		return
	}
	text := fmt.Sprintf("[ALERT] %s", env.Type)
	if alert.msg != "" {
		text = fmt.Sprintf("[ALERT] %s: %s", env.Type, alert.msg)
	}
	bot.Say(text)
	if alert.callback != nil {
		go alert.callback()
	}
}

// PlaySoundFile открывает файл ассоциированной программой ОС.
func PlaySoundFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		// start — откроет файл через ассоциированную программу
		cmd = exec.Command("cmd", "/C", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// колбэк из строки sound
func (bot *HexWarBot) callbackForSound(sound string) func() {
	s := strings.TrimSpace(sound)
	if s == "" || strings.EqualFold(s, "none") {
		return nil
	}
	path := filepath.Join("sounds", s) // ./sounds/<sound>

	return func() {
		if err := PlaySoundFile(path); err != nil {
			log.Println("sound open error:", err)
		}
	}
}
