// Package credstore — шифрованное хранилище учётки HexWar на диске.
// Пароль не лежит в открытом виде: ключ выводится PBKDF2 из машинной
// парольной фразы (hostname + пользователь) и случайной соли, сами данные
// запечатаны AES-256-GCM. Store реализует hwclient.CredentialSource, так
// что клиент читает отсюда учётку для тихого релогина после реконнекта.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hexwargame/hexwarbot/internal/hwclient"
)

const (
	saltFile  = "salt"
	credsFile = "credentials"

	pbkdf2Rounds = 100000
	keyLen       = 32
)

// Store хранит одну учётку в каталоге dir. Ключ шифрования привязан к
// машине: скопированный на другой хост файл не расшифруется.
type Store struct {
	dir string
	key []byte
}

// Open открывает (или создаёт) хранилище в dir. Соль создаётся один раз
// и дальше переиспользуется — иначе старые данные стали бы нечитаемыми.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("credstore: create dir: %w", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	return &Store{
		dir: dir,
		key: pbkdf2.Key([]byte(machinePassphrase()), salt, pbkdf2Rounds, keyLen, sha256.New),
	}, nil
}

// DefaultDir — каталог хранилища по умолчанию: $XDG_DATA_HOME/hexwarbot
// либо ~/.local/share/hexwarbot.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hexwarbot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("credstore: home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "hexwarbot"), nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		salt, err := hex.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("credstore: bad salt file: %w", err)
		}
		return salt, nil
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("credstore: generate salt: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return nil, fmt.Errorf("credstore: write salt: %w", err)
	}
	return salt, nil
}

// machinePassphrase — машинная часть ключа; переносу файлов между
// хостами мешает намеренно.
func machinePassphrase() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME") // Windows
	}
	return fmt.Sprintf("hexwar-credstore-%s-%s", hostname, user)
}

// Save шифрует и записывает учётку, затирая предыдущую.
func (s *Store) Save(creds hwclient.Credentials) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("credstore: marshal: %w", err)
	}
	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(sealed)
	if err := os.WriteFile(s.credsPath(), []byte(encoded), 0600); err != nil {
		return fmt.Errorf("credstore: write: %w", err)
	}
	return nil
}

// Load читает и расшифровывает сохранённую учётку.
func (s *Store) Load() (hwclient.Credentials, error) {
	var creds hwclient.Credentials

	data, err := os.ReadFile(s.credsPath())
	if err != nil {
		return creds, fmt.Errorf("credstore: read: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return creds, fmt.Errorf("credstore: decode: %w", err)
	}
	plain, err := s.open(sealed)
	if err != nil {
		return creds, err
	}
	if err := json.Unmarshal(plain, &creds); err != nil {
		return creds, fmt.Errorf("credstore: unmarshal: %w", err)
	}
	return creds, nil
}

// Credentials — реализация hwclient.CredentialSource.
func (s *Store) Credentials() (hwclient.Credentials, error) {
	return s.Load()
}

// HasCredentials сообщает, есть ли сохранённая учётка.
func (s *Store) HasCredentials() bool {
	_, err := os.Stat(s.credsPath())
	return err == nil
}

// Clear удаляет сохранённую учётку; отсутствие файла — не ошибка.
func (s *Store) Clear() error {
	if err := os.Remove(s.credsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("credstore: clear: %w", err)
	}
	return nil
}

func (s *Store) credsPath() string {
	return filepath.Join(s.dir, credsFile)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("credstore: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credstore: gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("credstore: nonce: %w", err)
	}
	// nonce уезжает префиксом в той же записи
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("credstore: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credstore: gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("credstore: sealed data too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("credstore: decrypt: %w", err)
	}
	return plain, nil
}
