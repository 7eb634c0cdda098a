package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/and161185/libdesk/internal/crypto/clientcrypto"
	"github.com/and161185/libdesk/internal/model"
)

const sealedPrefix = "sealed:v1:"

// ErrSealed is returned when a sealed file is read without a passphrase.
var ErrSealed = errors.New("session is sealed; passphrase required")

// DefaultDir returns $XDG_CONFIG_HOME/libdesk or ~/.config/libdesk.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "libdesk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "libdesk")
}

// File keeps each key in its own 0600 file under dir. With a sealer both
// values are encrypted at rest, bound to their key name.
type File struct {
	dir    string
	sealer *clientcrypto.Sealer
}

var _ Store = (*File)(nil)

// NewFile returns a file store rooted at dir. Passphrase "" stores plaintext.
func NewFile(dir, passphrase string) *File {
	f := &File{dir: dir}
	if passphrase != "" {
		f.sealer = clientcrypto.NewSealer(passphrase)
	}
	return f
}

func (f *File) path(key string) string { return filepath.Join(f.dir, key) }

// Set writes the profile first, then the token.
func (f *File) Set(_ context.Context, s model.Session) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	user, err := encodeProfile(s.Profile)
	if err != nil {
		return err
	}
	if err := f.write(KeyUser, user); err != nil {
		return err
	}
	return f.write(KeyToken, []byte(s.Token))
}

// Get loads the session; a missing file means no session.
func (f *File) Get(_ context.Context) (*model.Session, error) {
	tok, err := f.read(KeyToken)
	if err != nil || tok == nil {
		return nil, err
	}
	user, err := f.read(KeyUser)
	if err != nil || user == nil {
		return nil, err
	}
	if len(tok) == 0 {
		return nil, nil
	}
	p, err := decodeProfile(user)
	if err != nil {
		return nil, err
	}
	return &model.Session{Token: string(tok), Profile: p}, nil
}

// Clear removes both files.
func (f *File) Clear(context.Context) error {
	var errsOut []error
	for _, k := range []string{KeyToken, KeyUser} {
		if err := os.Remove(f.path(k)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errsOut = append(errsOut, err)
		}
	}
	return errors.Join(errsOut...)
}

func (f *File) write(key string, val []byte) error {
	if f.sealer != nil {
		blob, err := f.sealer.Seal([]byte(key), val)
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		val = []byte(sealedPrefix + base64.StdEncoding.EncodeToString(blob))
	}
	tmp, err := os.CreateTemp(f.dir, "."+key+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(val); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

// read returns nil, nil for a missing file.
func (f *File) read(key string) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(b, []byte(sealedPrefix)) {
		return b, nil
	}
	if f.sealer == nil {
		return nil, ErrSealed
	}
	blob, err := base64.StdEncoding.DecodeString(string(b[len(sealedPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("decode sealed %s: %w", key, err)
	}
	pt, err := f.sealer.Open([]byte(key), blob)
	if err != nil {
		return nil, fmt.Errorf("open sealed %s: %w", key, err)
	}
	return pt, nil
}
