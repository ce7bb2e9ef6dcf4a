package warbot

import (
	"fmt"
	"sort"
)

// buildPreset — именованный заказ постройки: что строить и сколько.
type buildPreset struct {
	item  string
	count int
}

const maxBuildCount = 10

// SetBuildPreset регистрирует или обновляет пресет постройки.
func (bot *HexWarBot) SetBuildPreset(name, item string, count int) error {
	if name == "" || item == "" {
		return fmt.Errorf("пустое имя пресета или предмета")
	}
	if count < 1 || count > maxBuildCount {
		return fmt.Errorf("count должен быть в пределах 1..%d", maxBuildCount)
	}
	bot.mu.Lock()
	bot.builds[name] = buildPreset{item: item, count: count}
	bot.mu.Unlock()
	return nil
}

// DeleteBuildPreset убирает пресет; отсутствие — не ошибка.
func (bot *HexWarBot) DeleteBuildPreset(name string) {
	bot.mu.Lock()
	delete(bot.builds, name)
	bot.mu.Unlock()
}

// BuildPresets — имена пресетов по алфавиту.
func (bot *HexWarBot) BuildPresets() []string {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	names := make([]string, 0, len(bot.builds))
	for n := range bot.builds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (bot *HexWarBot) buildPreset(name string) buildPreset {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	return bot.builds[name]
}

// runBuild отправляет заказы постройки по пресету. Ответов не ждём:
// сервер подтверждает каждую постройку push-ем item_built (подписка — в
// SetClient), поэтому заказ уходит очередью без пауз.
func (bot *HexWarBot) runBuild(name string) (string, error) {
	bot.mu.Lock()
	p, ok := bot.builds[name]
	bot.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("нет пресета %q", name)
	}

	for i := 0; i < p.count; i++ {
		if err := bot.hw.BuildItem(p.item); err != nil {
			return "", fmt.Errorf("%s: %w", p.item, err)
		}
	}
	return fmt.Sprintf("строим: %s x%d", p.item, p.count), nil
}
