package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// blacklistFile is the on-disk layout:
//
//	users:
//	  - "123456789012345678"
//	guilds:
//	  - "876543210987654321"
type blacklistFile struct {
	Users  []string `yaml:"users"`
	Guilds []string `yaml:"guilds"`
}

// Blacklist is a YAML-backed set of banned users and guilds. A missing file
// is an empty blacklist.
type Blacklist struct {
	path string

	mu     sync.RWMutex
	users  map[string]struct{}
	guilds map[string]struct{}
}

// LoadBlacklist reads path.
func LoadBlacklist(path string) (*Blacklist, error) {
	b := &Blacklist{path: path}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload rereads the file, replacing the in-memory sets.
func (b *Blacklist) Reload() error {
	var f blacklistFile
	data, err := os.ReadFile(b.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read blacklist: %w", err)
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parse blacklist %s: %w", b.path, err)
		}
	}

	users, guilds := toSet(f.Users), toSet(f.Guilds)
	b.mu.Lock()
	b.users, b.guilds = users, guilds
	b.mu.Unlock()
	return nil
}

func (b *Blacklist) IsUserBlacklisted(_ context.Context, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.users[userID]
	return ok, nil
}

func (b *Blacklist) IsGuildBlacklisted(_ context.Context, guildID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.guilds[guildID]
	return ok, nil
}

// Guilds returns the banned guild IDs, sorted.
func (b *Blacklist) Guilds() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fromSet(b.guilds)
}

// BanUser adds userID and writes the file back.
func (b *Blacklist) BanUser(userID string) error {
	b.mu.Lock()
	b.users[userID] = struct{}{}
	b.mu.Unlock()
	return b.save()
}

// BanGuild adds guildID and writes the file back.
func (b *Blacklist) BanGuild(guildID string) error {
	b.mu.Lock()
	b.guilds[guildID] = struct{}{}
	b.mu.Unlock()
	return b.save()
}

func (b *Blacklist) save() error {
	b.mu.RLock()
	f := blacklistFile{Users: fromSet(b.users), Guilds: fromSet(b.guilds)}
	b.mu.RUnlock()

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode blacklist: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("create blacklist dir: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("write blacklist: %w", err)
	}
	return nil
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return m
}

func fromSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
