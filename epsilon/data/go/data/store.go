// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by a Store for an unknown location.
var ErrNotFound = errors.New("data location not found")

// Store holds encoded blobs by location.
type Store interface {
	Get(location string) ([]byte, error)
	Put(location string, b []byte) error
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

// Get returns the blob at location.
func (s *MemoryStore) Get(location string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[location]
	if !ok {
		return nil, fmt.Errorf("%q: %w", location, ErrNotFound)
	}
	return b, nil
}

// Put stores b at location, replacing any previous blob.
func (s *MemoryStore) Put(location string, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[location] = append([]byte(nil), b...)
	return nil
}

// DirStore keeps one file per location under a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(location string) string {
	return filepath.Join(s.dir, url.PathEscape(location))
}

// Get reads the blob at location.
func (s *DirStore) Get(location string) ([]byte, error) {
	b, err := os.ReadFile(s.path(location))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", location, err)
	}
	return b, nil
}

// Put writes b to location. The file is renamed into place so concurrent
// readers never see a partial blob.
func (s *DirStore) Put(location string, b []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("writing %q: %w", location, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %q: %w", location, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %q: %w", location, err)
	}
	if err := os.Rename(tmp.Name(), s.path(location)); err != nil {
		return fmt.Errorf("writing %q: %w", location, err)
	}
	return nil
}
