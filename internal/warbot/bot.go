package warbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hexwargame/hexwarbot/internal/hwclient"
	"github.com/hexwargame/hexwarbot/internal/roster"
)

type HexWarBot struct {
	hw     *hwclient.HexWar
	roster *roster.Roster

	builds map[string]buildPreset
	alerts map[string]battleAlert

	cfg *configStore

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// чтобы не дёргать пересинхронизацию слишком часто при серии быстрых реконнектов
	resyncMu   sync.Mutex
	lastResync time.Time
}

func New() *HexWarBot {
	bot := &HexWarBot{
		builds: make(map[string]buildPreset),
		alerts: make(map[string]battleAlert),
	}
	bot.roster = roster.New(bot.Say)
	return bot
}

// SetClient создаёт клиент HexWar по конфигу и вешает на него всю
// обвязку: колбэки соединения, чат-команды и боевые оповещения.
func (bot *HexWarBot) SetClient(cfg hwclient.Config) {
	bot.hw = hwclient.New(cfg)

	bot.hw.OnConnecting = func() { fmt.Println("connecting...") }

	// КЛЮЧЕВОЕ: любое успешное подключение (первое или реконнект) — свежий
	// снимок игроков, ростер сам объявит изменения за время разрыва
	bot.hw.OnConnected = func() {
		fmt.Println("connected")
		go bot.resyncRoster()
	}

	bot.hw.OnDisconnected = func() { fmt.Println("disconnected") }
	bot.hw.OnError = func(err error) { fmt.Println("err:", err) }

	// --- чат-команды ---
	bot.hw.Subscribe(hwclient.PushChat, func(env *hwclient.Envelope) {
		text := strings.TrimSpace(env.GetString("text"))
		if strings.HasPrefix(text, "[bot]") {
			return
		}
		log.Printf("[%s] %s", env.Sender, text)
		if strings.HasPrefix(text, "!") {
			if err := bot.HandleCommand(text); err != nil {
				bot.Say(fmt.Sprintf("err: %v", err))
			}
		}
	})

	// --- боевые события ---
	for _, kind := range []hwclient.PushKind{
		hwclient.PushBattleStarted,
		hwclient.PushBattleEnded,
		hwclient.PushAttackPhase,
	} {
		bot.hw.Subscribe(kind, bot.handleBattleEvent)
	}

	// --- подтверждение постройки (build_item уходит без ожидания) ---
	bot.hw.Subscribe(hwclient.PushItemBuilt, func(env *hwclient.Envelope) {
		log.Printf("[build] done: %s", env.GetString("item"))
	})

	// welcome может нести имя сессии — подхватим, если логина ещё не было
	bot.hw.Subscribe(hwclient.PushWelcome, func(env *hwclient.Envelope) {
		if name := env.GetString("name"); name != "" && bot.hw.Identity() == "" {
			bot.hw.SetIdentity(name)
		}
		if motd := env.GetString("motd"); motd != "" {
			log.Printf("[server] %s", motd)
		}
	})

	bot.hw.Subscribe(hwclient.PushNotification, func(env *hwclient.Envelope) {
		log.Printf("[notify] %s", env.GetString("text"))
	})
}

// Client отдаёт клиент HexWar (для логина из main и т.п.).
func (bot *HexWarBot) Client() *hwclient.HexWar {
	return bot.hw
}

// Roster отдаёт ростер отслеживаемых игроков.
func (bot *HexWarBot) Roster() *roster.Roster {
	return bot.roster
}

// Say пишет в общий чат от имени бота. Префикс [bot] не даёт боту
// реагировать на собственные сообщения.
func (bot *HexWarBot) Say(text string) {
	if bot.hw == nil {
		return
	}
	if err := bot.hw.SendChat("[bot] " + text); err != nil {
		log.Println("say:", err)
	}
}

func (bot *HexWarBot) Start() error {
	if bot == nil {
		return errors.New("бот не инициализирован")
	}
	if bot.hw == nil {
		return errors.New("клиент не инициализирован")
	}

	bot.mu.Lock()
	if bot.stopCh != nil {
		bot.mu.Unlock()
		return errors.New("уже запущен")
	}
	stop := make(chan struct{})
	bot.stopCh = stop
	bot.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	if err := bot.hw.Connect(ctx); err != nil {
		cancel()
		bot.mu.Lock()
		bot.stopCh = nil
		bot.mu.Unlock()
		return err
	}

	// интервал 0 — возьмётся PollInterval из конфига клиента
	_ = bot.hw.StartPolling(0, bot.roster.Update)

	// сторож для остановки
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		<-stop
		bot.hw.StopPolling()
		cancel()
		bot.hw.Disconnect()
	}()

	return nil
}

func (bot *HexWarBot) Stop() {
	bot.mu.Lock()
	ch := bot.stopCh
	bot.stopCh = nil
	bot.mu.Unlock()

	if ch != nil {
		close(ch)     // безопасно: повторный Stop() ничего не делает
		bot.wg.Wait() // дождёмся остановки фоновой горутины
	}
}

// resyncRoster запрашивает свежий список игроков после (ре)подключения.
func (bot *HexWarBot) resyncRoster() {
	// антидребезг: серия быстрых реконнектов коллапсируется в один запрос
	bot.resyncMu.Lock()
	if time.Since(bot.lastResync) < 2*time.Second {
		bot.resyncMu.Unlock()
		return
	}
	bot.lastResync = time.Now()
	bot.resyncMu.Unlock()

	players, err := bot.hw.GetPlayers()
	if err != nil {
		log.Println("resync:", err)
		return
	}
	bot.roster.Update(players)
}
