package trace

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	prefixStep    = 's'
	prefixProgram = 'p'
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborEncMode = em
}

// Store keeps traces in LevelDB, one CBOR record per cycle, keyed by the
// program hash and the cycle number so a scan returns steps in order.
// Thread-safe: LevelDB handles its own synchronization.
type Store struct {
	db *leveldb.DB
}

// OpenStore opens or creates a store at path. An empty path uses memory.
func OpenStore(path string) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func stepKey(hash [32]byte, cycle uint64) []byte {
	k := make([]byte, 1+32+8)
	k[0] = prefixStep
	copy(k[1:], hash[:])
	binary.BigEndian.PutUint64(k[33:], cycle)
	return k
}

func programKey(hash [32]byte) []byte {
	return append([]byte{prefixProgram}, hash[:]...)
}

// PutProgram records the image a trace belongs to.
func (s *Store) PutProgram(hash [32]byte, code []byte) error {
	return s.db.Put(programKey(hash), code, nil)
}

// Program returns the image stored under hash.
func (s *Store) Program(hash [32]byte) ([]byte, error) {
	code, err := s.db.Get(programKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("program %x: %w", hash[:8], avaerrors.ErrHTraceMissing)
	}
	return code, err
}

// PutStep stores one step under the program hash.
func (s *Store) PutStep(hash [32]byte, step *Step) error {
	data, err := cborEncMode.Marshal(step)
	if err != nil {
		return fmt.Errorf("encode step %d: %w", step.Cycle, err)
	}
	return s.db.Put(stepKey(hash, step.Cycle), data, nil)
}

// Steps returns every step recorded for hash in cycle order.
func (s *Store) Steps(hash [32]byte) ([]Step, error) {
	prefix := append([]byte{prefixStep}, hash[:]...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var steps []Step
	for iter.Next() {
		var st Step
		if err := cbor.Unmarshal(iter.Value(), &st); err != nil {
			return nil, fmt.Errorf("decode step %x: %w", iter.Key(), err)
		}
		steps = append(steps, st)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("program %x: %w", hash[:8], avaerrors.ErrHTraceMissing)
	}
	return steps, nil
}

// Programs lists the hashes of every stored program.
func (s *Store) Programs() ([][32]byte, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixProgram}), nil)
	defer iter.Release()

	var out [][32]byte
	for iter.Next() {
		var h [32]byte
		copy(h[:], iter.Key()[1:])
		out = append(out, h)
	}
	return out, iter.Error()
}

// DeleteTrace removes every step recorded for hash.
func (s *Store) DeleteTrace(hash [32]byte) error {
	prefix := append([]byte{prefixStep}, hash[:]...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

// Writer returns a Sink appending steps under hash.
func (s *Store) Writer(hash [32]byte) Sink {
	return &storeSink{store: s, hash: hash}
}

type storeSink struct {
	store *Store
	hash  [32]byte
}

func (w *storeSink) WriteStep(step *Step) error {
	return w.store.PutStep(w.hash, step)
}
