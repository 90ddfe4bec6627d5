// Copyright (c) 2026 John Earle
//
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

package spam

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// ErrUntrained is returned when a stored model holds no training documents.
var ErrUntrained = errors.New("spam model has no training documents")

var (
	metaBucket = []byte("meta")
	hamBucket  = []byte("ham")
	spamBucket = []byte("spam")

	hamDocsKey  = []byte("ham_docs")
	spamDocsKey = []byte("spam_docs")
)

// SaveModel writes nb to a bbolt file at path, replacing any model stored
// there.
func SaveModel(path string, nb *NaiveBayes) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open model store %s: %w", path, err)
	}
	defer db.Close()

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{metaBucket, hamBucket, spamBucket} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}

		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		if err := meta.Put(hamDocsKey, encodeCount(nb.hamDocs)); err != nil {
			return err
		}
		if err := meta.Put(spamDocsKey, encodeCount(nb.spamDocs)); err != nil {
			return err
		}

		if err := putCounts(tx, hamBucket, nb.hamWords); err != nil {
			return err
		}
		return putCounts(tx, spamBucket, nb.spamWords)
	})
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}

	slog.Info("spam model saved",
		"path", path,
		"ham_docs", nb.hamDocs,
		"spam_docs", nb.spamDocs,
		"vocabulary", len(nb.vocab),
	)
	return nil
}

// LoadModel reads a model written by SaveModel.
func LoadModel(path string) (*NaiveBayes, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("spam model %s: %w", path, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open model store %s: %w", path, err)
	}
	defer db.Close()

	nb := NewNaiveBayes()
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return ErrUntrained
		}
		nb.hamDocs = decodeCount(meta.Get(hamDocsKey))
		nb.spamDocs = decodeCount(meta.Get(spamDocsKey))

		if err := readCounts(tx, hamBucket, nb, false); err != nil {
			return err
		}
		return readCounts(tx, spamBucket, nb, true)
	})
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if nb.hamDocs+nb.spamDocs == 0 {
		return nil, ErrUntrained
	}
	return nb, nil
}

func putCounts(tx *bbolt.Tx, name []byte, counts map[string]int) error {
	b, err := tx.CreateBucket(name)
	if err != nil {
		return err
	}
	for word, n := range counts {
		if err := b.Put([]byte(word), encodeCount(n)); err != nil {
			return err
		}
	}
	return nil
}

func readCounts(tx *bbolt.Tx, name []byte, nb *NaiveBayes, isSpam bool) error {
	b := tx.Bucket(name)
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		nb.add(string(k), isSpam, decodeCount(v))
		return nil
	})
}

func encodeCount(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeCount(v []byte) int {
	if len(v) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(v))
}

// ReadCorpus reads one training document per non-blank line.
func ReadCorpus(r io.Reader) ([]string, error) {
	var docs []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			docs = append(docs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return docs, nil
}
