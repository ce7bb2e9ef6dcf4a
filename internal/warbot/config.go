package warbot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

type BuildConf struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type AlertConf struct {
	Msg   string `json:"msg"`
	Sound string `json:"sound"` // "none" или "1.mp3"
}

type BotConfig struct {
	// Отслеживаемые игроки для ростера:
	Players []string             `json:"players"`
	Builds  map[string]BuildConf `json:"builds"`
	Alerts  map[string]AlertConf `json:"alerts"`
}

type configStore struct {
	mu   sync.Mutex
	path string
	data BotConfig
}

func newConfigStore(path string) *configStore {
	return &configStore{
		path: path,
		data: BotConfig{
			Builds: map[string]BuildConf{},
			Alerts: map[string]AlertConf{},
		},
	}
}

// UseConfig подключает JSON-конфиг бота и применяет его в рантайме:
// watch-лист ростера, пресеты построек и боевые оповещения.
func (bot *HexWarBot) UseConfig(path string) error {
	bot.cfg = newConfigStore(path)
	if err := bot.cfg.Load(); err != nil {
		return err
	}
	if len(bot.cfg.data.Players) > 0 {
		bot.roster.Track(bot.cfg.data.Players...)
	}
	for name, b := range bot.cfg.data.Builds {
		_ = bot.SetBuildPreset(name, b.Item, b.Count)
	}
	for ev, a := range bot.cfg.data.Alerts {
		_ = bot.SetAlert(ev, a.Msg, bot.callbackForSound(a.Sound))
	}
	return nil
}

func (cs *configStore) Load() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_ = os.MkdirAll(filepath.Dir(cs.path), 0755)
	b, err := os.ReadFile(cs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cs.saveLocked() // создаём пустой
		}
		return err
	}
	if err := json.Unmarshal(b, &cs.data); err != nil {
		return err
	}
	// null в файле не должен оставить nil-карты
	if cs.data.Builds == nil {
		cs.data.Builds = map[string]BuildConf{}
	}
	if cs.data.Alerts == nil {
		cs.data.Alerts = map[string]AlertConf{}
	}
	return nil
}

func (cs *configStore) Save() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.saveLocked()
}

func (cs *configStore) saveLocked() error {
	b, err := json.MarshalIndent(&cs.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cs.path, b, 0644)
}
