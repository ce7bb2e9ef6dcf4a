// Package hwclient реализует WebSocket-клиент игрового сервера HexWar.
// Протокол — плоские JSON-кадры поверх одного соединения: каждый кадр
// несёт type, коррелированные запросы — ещё и request_id, после логина
// клиент подписывает кадры полем sender. Клиент умеет:
//
//   - Send (без ожидания) и Request (запрос/ответ по request_id с
//     таймаутом; исход ровно один: ответ, type:"error", таймаут или
//     падение соединения);
//   - push-события подписчикам: Subscribe(PushChat|PushNotification|
//     PushBattleStarted|...) с функцией отписки; незнакомые типы уходят
//     в PushUnknown, а не теряются;
//   - автоматический реконнект с экспоненциальным backoff (jpillora/
//     backoff) и тихий релогин из CredentialSource — только после
//     реконнекта, первый вход делает приложение;
//   - фоновый опрос списка игроков: StartPolling/StopPolling;
//   - высокоуровневые методы: Login, Register, Ping, GetPlayers,
//     SendChat, BuildItem, Attack.
//
// События (колбэки-поля структуры):
//   - OnConnecting, OnConnected, OnDisconnected, OnError.
//     Вызываются из горутин клиента — не блокировать.
//
// Безопасность и устойчивость:
//   - Запись в сокет сериализована (мьютекс + write-deadline), keep-alive
//     ping/pong с read-deadline. Параллельные Connect сходятся в одну
//     попытку: второй транспорт не строится никогда. При падении
//     соединения все запросы в полёте получают ошибку, реконнект идёт с
//     задержками 1s → 1.5s → 2.25s → ... до потолка 10s.
//
// Пример:
//
//	hw := hwclient.New(hwclient.Config{ServerURL: "ws://1.2.3.4:9180/ws"})
//	hw.OnConnected = func() { fmt.Println("connected") }
//	if err := hw.Connect(context.Background()); err != nil { log.Fatal(err) }
//	defer hw.Disconnect()
//
//	if _, err := hw.Login("ares", "secret"); err != nil { log.Fatal(err) }
//
//	// Чат и постройка — без ожидания ответа:
//	_ = hw.SendChat("всем привет")
//	_ = hw.BuildItem("catapult")
//
//	// Подтверждение постройки придёт push-ем:
//	unsub := hw.Subscribe(hwclient.PushItemBuilt, func(e *hwclient.Envelope) {
//	    fmt.Println("built:", e.GetString("item"))
//	})
//	defer unsub()
//
//	// Список игроков раз в 15 секунд:
//	_ = hw.StartPolling(0, func(ps []hwclient.Player) { fmt.Println(ps) })
//	defer hw.StopPolling()
package hwclient
