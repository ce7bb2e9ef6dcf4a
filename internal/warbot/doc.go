// Package warbot — «склейка» вокруг hwclient, roster и credstore,
// реализующая прикладного бота для HexWar. Бот:
//   - слушает push-события сервера и чат-команды;
//   - обрабатывает команды (!help, !status, !players, !attack, !build*,
//     !track*, !alert* и др.);
//   - держит пресеты построек и запускает их по команде;
//   - объявляет вход/выход отслеживаемых игроков (ростер на фоне опроса);
//   - реагирует на боевые события (battle_started/battle_ended/attack_phase)
//     сообщением в чат и звуком;
//   - поддерживает конфиг (UseConfig/!save) и воспроизведение звуков
//     при событиях (через внешнюю программу ОС).
//
// Жизненный цикл:
//   - Создать бота через New().
//   - Передать клиент: SetClient(hwclient.Config{...}).
//   - (Опционально) UseConfig("conf/botconfig.json") — применит
//     players/builds/alerts.
//   - Запустить Start() и остановить Stop().
//
// Пример:
//
//	b := warbot.New()
//	b.SetClient(hwcfg)
//	_ = b.UseConfig("conf/botconfig.json")
//
//	if err := b.Start(); err != nil { log.Fatal(err) }
//	defer b.Stop()
//	select {} // держим процесс
//
// Конфигурация:
//   - хранится в JSON (см. BotConfig), включает watch-лист игроков, пресеты
//     построек и оповещения по боевым событиям. Команды в чате изменяют
//     рантайм-состояние и сразу сохраняют конфиг (команда !save доступна
//     явно).
package warbot
