package warbot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// сплит с поддержкой кавычек: и целиком ("нас атакуют"), и в значении
// пары (msg="нас атакуют")
var reArg = regexp.MustCompile(`[^\s"]+="[^"]*"|"([^"]*)"|(\S+)`)

func (bot *HexWarBot) HandleCommand(text string) error {
	fields := splitArgs(text)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])

	say := bot.Say

	switch cmd {

	case "!help":
		say(strings.Join([]string{
			"!help",
			"!status",
			"!players",
			"!attack <цель>",
			"!build <пресет> | list | set <пресет> <предмет> [count=N] | del <пресет>",
		}, "\n"))
		say(strings.Join([]string{
			"!track add <имя> | del <имя> | list | info",
			"!alert add <событие> [msg=\"...\"] [sound=1.mp3|none]",
			"!alert del <событие> | list",
			"!save",
		}, "\n"))
		return nil

	// ---------- STATUS ----------
	case "!status":
		st := bot.hw.Stats()
		identity := bot.hw.Identity()
		if identity == "" {
			identity = "(нет)"
		}
		say(fmt.Sprintf("соединение: %s | игрок: %s", bot.hw.State(), identity))
		say(fmt.Sprintf("кадры in/out: %d/%d | реконнекты: %d | аномалии: %d",
			st.FramesIn, st.FramesOut, st.Reconnects, st.Anomalies))
		return nil

	// ---------- PLAYERS ----------
	case "!players":
		players, err := bot.hw.GetPlayers()
		if err != nil {
			return err
		}
		if len(players) == 0 {
			say("на сервере пусто")
			return nil
		}
		sort.Slice(players, func(i, j int) bool {
			if players[i].Score != players[j].Score {
				return players[i].Score > players[j].Score
			}
			return players[i].Name < players[j].Name
		})
		var rows []string
		for _, p := range players {
			mark := "оффлайн"
			if p.Online {
				mark = "онлайн"
			}
			rows = append(rows, fmt.Sprintf("%s — %d (%s)", p.Name, p.Score, mark))
		}
		say("игроки:\n" + strings.Join(rows, "\n"))
		return nil

	// ---------- ATTACK ----------
	case "!attack":
		if len(fields) < 2 {
			return fmt.Errorf("usage: !attack <цель>")
		}
		target := fields[1]
		resp, err := bot.hw.Attack(target)
		if err != nil {
			return err
		}
		outcome := resp.GetString("outcome")
		if outcome == "" {
			outcome = "ok"
		}
		say(fmt.Sprintf("атака на %s: %s", target, outcome))
		return nil

	// ---------- BUILD ----------
	case "!build":
		if len(fields) < 2 {
			return fmt.Errorf("usage: !build <пресет>|list|set|del")
		}
		sub := strings.ToLower(fields[1])

		switch sub {
		case "list":
			presets := bot.BuildPresets()
			if len(presets) == 0 {
				say("builds: (empty)")
				return nil
			}
			var rows []string
			for _, name := range presets {
				p := bot.buildPreset(name)
				rows = append(rows, fmt.Sprintf("%s: %s x%d", name, p.item, p.count))
			}
			say("builds:\n" + strings.Join(rows, "\n"))
			return nil

		case "set":
			if len(fields) < 4 {
				return fmt.Errorf("usage: !build set <пресет> <предмет> [count=N]")
			}
			name, item := fields[2], fields[3]
			count := 1
			if kv := parseKV(fields[4:]); kv["count"] != "" {
				v, err := strconv.Atoi(kv["count"])
				if err != nil {
					return fmt.Errorf("bad count: %w", err)
				}
				count = v
			}
			if err := bot.SetBuildPreset(name, item, count); err != nil {
				return err
			}
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				bot.cfg.data.Builds[name] = BuildConf{Item: item, Count: count}
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("build set: %s = %s x%d", name, item, count))
			return nil

		case "del":
			if len(fields) < 3 {
				return fmt.Errorf("usage: !build del <пресет>")
			}
			name := fields[2]
			bot.DeleteBuildPreset(name)
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				delete(bot.cfg.data.Builds, name)
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("build deleted: %s", name))
			return nil

		default:
			// !build <пресет> — запустить постройку
			msg, err := bot.runBuild(fields[1])
			if err != nil {
				return err
			}
			say(msg)
			return nil
		}

	// ---------- TRACK ----------
	case "!track":
		if len(fields) < 2 {
			return fmt.Errorf("usage: !track add|del|list|info")
		}
		sub := strings.ToLower(fields[1])

		switch sub {
		case "list":
			tracked := bot.roster.Tracked()
			if len(tracked) == 0 {
				say("tracked: (empty)")
				return nil
			}
			say("tracked:\n" + strings.Join(tracked, "\n"))
			return nil

		case "info":
			if len(bot.roster.Tracked()) == 0 {
				say("tracked: (empty)")
				return nil
			}
			say(bot.roster.FormatOnlineInfo(bot.roster.IsOnline()))
			return nil

		case "add":
			if len(fields) < 3 {
				return fmt.Errorf("usage: !track add <имя>")
			}
			name := fields[2]
			bot.roster.Track(name)
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				found := false
				for _, p := range bot.cfg.data.Players {
					if p == name {
						found = true
						break
					}
				}
				if !found {
					bot.cfg.data.Players = append(bot.cfg.data.Players, name)
				}
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("track added: %s", name))
			return nil

		case "del":
			if len(fields) < 3 {
				return fmt.Errorf("usage: !track del <имя>")
			}
			name := fields[2]
			bot.roster.Untrack(name)
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				out := make([]string, 0, len(bot.cfg.data.Players))
				for _, p := range bot.cfg.data.Players {
					if p != name {
						out = append(out, p)
					}
				}
				bot.cfg.data.Players = out
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("track deleted: %s", name))
			return nil

		default:
			return fmt.Errorf("usage: !track add|del|list|info")
		}

	// ---------- ALERTS ----------
	case "!alert":
		if len(fields) < 2 {
			return fmt.Errorf("usage: !alert add|del|list")
		}
		sub := strings.ToLower(fields[1])

		switch sub {
		case "list":
			events := bot.AlertEvents()
			if len(events) == 0 {
				say("alerts: (empty)")
				return nil
			}
			var rows []string
			for _, ev := range events {
				a := bot.alert(ev)
				sound := "none"
				if bot.cfg != nil {
					bot.cfg.mu.Lock()
					if ac, ok := bot.cfg.data.Alerts[ev]; ok && ac.Sound != "" {
						sound = ac.Sound
					}
					bot.cfg.mu.Unlock()
				}
				rows = append(rows, fmt.Sprintf("%s msg=%q sound=%q", ev, a.msg, sound))
			}
			say("alerts:\n" + strings.Join(rows, "\n"))
			return nil

		case "add":
			if len(fields) < 3 {
				return fmt.Errorf("usage: !alert add <событие> [msg=\"...\"] [sound=1.mp3|none]")
			}
			event := strings.ToLower(fields[2])
			kv := parseKV(fields[3:]) // msg=..., sound=...
			msg := kv["msg"]
			sound := kv["sound"] // "none" | "file.mp3" | ""

			if err := bot.SetAlert(event, msg, bot.callbackForSound(sound)); err != nil {
				return err
			}
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				bot.cfg.data.Alerts[event] = AlertConf{Msg: msg, Sound: sound}
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("alert added: %s", event))
			return nil

		case "del":
			if len(fields) < 3 {
				return fmt.Errorf("usage: !alert del <событие>")
			}
			event := strings.ToLower(fields[2])
			bot.DeleteAlert(event)
			if bot.cfg != nil {
				bot.cfg.mu.Lock()
				delete(bot.cfg.data.Alerts, event)
				bot.cfg.mu.Unlock()
				_ = bot.cfg.Save()
			}
			say(fmt.Sprintf("alert deleted: %s", event))
			return nil

		default:
			return fmt.Errorf("usage: !alert add|del|list")
		}

	// ---------- SAVE ----------
	case "!save":
		if bot.cfg != nil {
			if err := bot.cfg.Save(); err != nil {
				return err
			}
			say("config saved")
			return nil
		}
		return fmt.Errorf("config not enabled")

	default:
		return fmt.Errorf("unknown command. try !help")
	}
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		switch {
		case m[1] != "":
			out = append(out, m[1])
		case m[2] != "":
			out = append(out, m[2])
		default:
			// key="значение с пробелами" — кавычки долой
			out = append(out, strings.Replace(m[0], `"`, "", 2))
		}
	}
	return out
}

func parseKV(args []string) map[string]string {
	res := map[string]string{}
	for _, a := range args {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) == 2 {
			res[strings.ToLower(kv[0])] = kv[1]
		}
	}
	return res
}
