package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

var (
	metaBucket      = []byte("meta")
	balancesBucket  = []byte("balances")
	receiptsBucket  = []byte("receipts")
	transfersBucket = []byte("transfers")

	configKey   = []byte("config")
	contractKey = []byte("contract")
	heightKey   = []byte("height")
)

// BoltLedgerStore keeps the ledger in a single BoltDB file. Every commit is
// one read-write bolt transaction.
type BoltLedgerStore struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*BoltLedgerStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	return &BoltLedgerStore{db: db}, nil
}

// Migrate creates the buckets.
func (s *BoltLedgerStore) Migrate(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, balancesBucket, receiptsBucket, transfersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	})
}

func (s *BoltLedgerStore) LoadState(ctx context.Context) (*token.State, common.Address, uint64, error) {
	var (
		state    *token.State
		contract common.Address
		height   uint64
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		raw := meta.Get(configKey)
		if raw == nil {
			return interfaces.ErrNotFound
		}

		state = &token.State{Balances: make(map[common.Address]*uint256.Int)}
		if err := json.Unmarshal(raw, &state.Config); err != nil {
			return errors.Wrap(err, "decode token config")
		}
		contract = common.BytesToAddress(meta.Get(contractKey))
		if h := meta.Get(heightKey); len(h) == 8 {
			height = binary.BigEndian.Uint64(h)
		}

		return tx.Bucket(balancesBucket).ForEach(func(k, v []byte) error {
			state.Balances[common.BytesToAddress(k)] = new(uint256.Int).SetBytes(v)
			return nil
		})
	})
	if err != nil {
		return nil, common.Address{}, 0, err
	}
	return state, contract, height, nil
}

func (s *BoltLedgerStore) SaveCommit(ctx context.Context, commit models.Commit) error {
	cfg, err := json.Marshal(commit.Config)
	if err != nil {
		return errors.Wrap(err, "encode token config")
	}
	receipt, err := json.Marshal(commit.Receipt)
	if err != nil {
		return errors.Wrap(err, "encode receipt")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if err := meta.Put(configKey, cfg); err != nil {
			return err
		}
		if err := meta.Put(contractKey, commit.Contract.Bytes()); err != nil {
			return err
		}
		if err := meta.Put(heightKey, encodeUint64(commit.Receipt.BlockNumber)); err != nil {
			return err
		}

		balances := tx.Bucket(balancesBucket)
		for addr, b := range commit.Balances {
			v := b.Bytes32()
			if err := balances.Put(addr.Bytes(), v[:]); err != nil {
				return err
			}
		}

		if err := tx.Bucket(receiptsBucket).Put(commit.Receipt.TxHash.Bytes(), receipt); err != nil {
			return err
		}

		transfers := tx.Bucket(transfersBucket)
		for _, tr := range commit.Receipt.Transfers {
			raw, err := json.Marshal(tr)
			if err != nil {
				return errors.Wrap(err, "encode transfer")
			}
			if err := transfers.Put(transferKey(tr), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltLedgerStore) ReceiptByHash(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	var r models.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(receiptsBucket).Get(hash.Bytes())
		if raw == nil {
			return interfaces.ErrNotFound
		}
		return json.Unmarshal(raw, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BoltLedgerStore) Transfers(ctx context.Context) ([]models.TransferRecord, error) {
	return s.scanTransfers(func(models.TransferRecord) bool { return true })
}

func (s *BoltLedgerStore) TransfersByAccount(ctx context.Context, account common.Address) ([]models.TransferRecord, error) {
	return s.scanTransfers(func(tr models.TransferRecord) bool {
		return tr.From == account || tr.To == account
	})
}

// scanTransfers walks the transfers bucket in key order, which is block
// number then index.
func (s *BoltLedgerStore) scanTransfers(keep func(models.TransferRecord) bool) ([]models.TransferRecord, error) {
	var records []models.TransferRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(transfersBucket).ForEach(func(k, v []byte) error {
			var tr models.TransferRecord
			if err := json.Unmarshal(v, &tr); err != nil {
				return errors.Wrap(err, "decode transfer")
			}
			if keep(tr) {
				records = append(records, tr)
			}
			return nil
		})
	})
	return records, err
}

func (s *BoltLedgerStore) Close() error {
	return s.db.Close()
}

func transferKey(tr models.TransferRecord) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key, tr.BlockNumber)
	binary.BigEndian.PutUint32(key[8:], uint32(tr.Index))
	return key
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ interfaces.LedgerStore = (*BoltLedgerStore)(nil)
