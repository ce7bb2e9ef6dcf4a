package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hexwargame/hexwarbot/internal/credstore"
	"github.com/hexwargame/hexwarbot/internal/hwclient"
	"github.com/hexwargame/hexwarbot/internal/warbot"
)

func mustRead[T any](path string, out *T) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		log.Fatal(err)
	}
}

func main() {
	// .env рядом с бинарём — удобный способ задать HEXWAR_NAME/HEXWAR_PASSWORD
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env: %v", err)
	}

	var hwcfg hwclient.Config
	mustRead("conf/hwconfig.json", &hwcfg)

	// шифрованное хранилище учётки: клиент берёт отсюда логин для тихого
	// релогина после реконнекта
	credDir, err := credstore.DefaultDir()
	if err != nil {
		log.Fatal(err)
	}
	store, err := credstore.Open(credDir)
	if err != nil {
		log.Fatal(err)
	}
	hwcfg.Credentials = store

	b := warbot.New()
	b.SetClient(hwcfg)

	// подключим конфиг бота и применим его (players/builds/alerts)
	if err := b.UseConfig("conf/botconfig.json"); err != nil {
		log.Fatal(err)
	}

	if err := b.Start(); err != nil {
		log.Fatal(err)
	}
	defer b.Stop()

	if err := login(b, store); err != nil {
		log.Println("login:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("running… press Ctrl+C to stop")

	<-ctx.Done()
}

// login выполняет первый вход. Приоритет у переменных окружения: успешный
// вход с ними обновляет хранилище, дальше реконнекты логинятся сами.
func login(b *warbot.HexWarBot, store *credstore.Store) error {
	name, password := os.Getenv("HEXWAR_NAME"), os.Getenv("HEXWAR_PASSWORD")
	if name != "" && password != "" {
		if _, err := b.Client().Login(name, password); err != nil {
			return err
		}
		return store.Save(hwclient.Credentials{Name: name, Password: password})
	}

	if !store.HasCredentials() {
		log.Println("нет сохранённой учётки: задайте HEXWAR_NAME и HEXWAR_PASSWORD")
		return nil
	}
	creds, err := store.Load()
	if err != nil {
		return err
	}
	_, err = b.Client().Login(creds.Name, creds.Password)
	return err
}
