package credential

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyringVersion = 1
	saltSize       = 16
)

// KDFParams are the argon2id cost parameters recorded in the keyring header.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
}

// DefaultKDF follows the argon2id recommendation for interactive use.
var DefaultKDF = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

type keyringFile struct {
	Version int       `json:"version"`
	KDF     KDFParams `json:"kdf"`
	Salt    []byte    `json:"salt"`
	Nonce   []byte    `json:"nonce"`
	Data    []byte    `json:"data"`
}

// File is an encrypted keyring persisted as a single JSON document. The
// password map is sealed with XChaCha20-Poly1305 under a key derived from the
// master passphrase with argon2id.
type File struct {
	path string

	mu        sync.RWMutex
	kdf       KDFParams
	salt      []byte
	key       []byte
	passwords map[string]string
}

// OpenFile opens or creates the keyring at path. A new keyring is only
// written on the first SetPassword.
func OpenFile(path, passphrase string) (*File, error) {
	return OpenFileWithKDF(path, passphrase, DefaultKDF)
}

// OpenFileWithKDF is OpenFile with explicit cost parameters for new keyrings.
// Existing keyrings always use the parameters stored in their header.
func OpenFileWithKDF(path, passphrase string, kdf KDFParams) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("keyring path is empty")
	}
	if passphrase == "" {
		return nil, errors.New("master key is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		return &File{
			path:      path,
			kdf:       kdf,
			salt:      salt,
			key:       deriveKey(passphrase, salt, kdf),
			passwords: make(map[string]string),
		}, nil
	}

	var header keyringFile
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parse keyring: %w", err)
	}
	if header.Version != keyringVersion {
		return nil, fmt.Errorf("unsupported keyring version %d", header.Version)
	}

	key := deriveKey(passphrase, header.Salt, header.KDF)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(header.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("parse keyring: bad nonce length %d", len(header.Nonce))
	}
	plain, err := aead.Open(nil, header.Nonce, header.Data, header.Salt)
	if err != nil {
		return nil, ErrLocked
	}

	passwords := make(map[string]string)
	if err := json.Unmarshal(plain, &passwords); err != nil {
		return nil, fmt.Errorf("decode keyring: %w", err)
	}
	return &File{
		path:      path,
		kdf:       header.KDF,
		salt:      header.Salt,
		key:       key,
		passwords: passwords,
	}, nil
}

// Password implements Getter.
func (f *File) Password(endpointID string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pw, ok := f.passwords[endpointID]
	return pw, ok, nil
}

// SetPassword stores a password and rewrites the keyring. An empty password
// clears the entry.
func (f *File) SetPassword(endpointID, password string) error {
	if strings.TrimSpace(endpointID) == "" {
		return errors.New("endpoint id is empty")
	}
	if password == "" {
		return f.ClearPassword(endpointID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.cloneLocked()
	next[endpointID] = password
	if err := f.persistLocked(next); err != nil {
		return err
	}
	f.passwords = next
	return nil
}

// ClearPassword removes the password for an endpoint and rewrites the keyring.
func (f *File) ClearPassword(endpointID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[endpointID]; !ok {
		return nil
	}
	next := f.cloneLocked()
	delete(next, endpointID)
	if err := f.persistLocked(next); err != nil {
		return err
	}
	f.passwords = next
	return nil
}

func (f *File) cloneLocked() map[string]string {
	out := make(map[string]string, len(f.passwords)+1)
	for k, v := range f.passwords {
		out[k] = v
	}
	return out
}

func (f *File) persistLocked(passwords map[string]string) error {
	plain, err := json.Marshal(passwords)
	if err != nil {
		return fmt.Errorf("encode keyring: %w", err)
	}
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	doc := keyringFile{
		Version: keyringVersion,
		KDF:     f.kdf,
		Salt:    f.salt,
		Nonce:   nonce,
		Data:    aead.Seal(nil, nonce, plain, f.salt),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keyring: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create keyring dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename keyring: %w", err)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte, kdf KDFParams) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdf.Time, kdf.Memory, kdf.Threads, chacha20poly1305.KeySize)
}
