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

package parameters

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	log "github.com/golang/glog"
)

// Store is a Service backed by a badger database.
type Store struct {
	db *badger.DB
}

// glogger routes badger's log output to glog.
type glogger struct{}

func (glogger) Errorf(format string, args ...any)   { log.Errorf("badger: "+format, args...) }
func (glogger) Warningf(format string, args ...any) { log.Warningf("badger: "+format, args...) }
func (glogger) Infof(format string, args ...any)    { log.V(1).Infof("badger: "+format, args...) }
func (glogger) Debugf(format string, args ...any)   { log.V(3).Infof("badger: "+format, args...) }

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("parameter store directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating parameter store directory %s: %w", dir, err)
	}
	return open(badger.DefaultOptions(dir).WithSyncWrites(true))
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithNumVersionsToKeep(1).WithLogger(glogger{}))
	if err != nil {
		return nil, fmt.Errorf("opening parameter store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte("p/"), id)
}

// Fetch implements Service.
func (s *Store) Fetch(id uint64) ([]float64, error) {
	var x []float64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			x = []float64{}
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(b []byte) error {
			x, err = DecodeFloats(b)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("fetching parameter %d: %w", id, err)
	}
	return x, nil
}

// Update implements Service.
func (s *Store) Update(id uint64, value []float64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), EncodeFloats(value))
	})
	if err != nil {
		return fmt.Errorf("updating parameter %d: %w", id, err)
	}
	return nil
}
