package index

import "github.com/pkg/errors"

var ErrTransactionClosed = errors.New("transaction is already closed")

// Transaction is a write-side view of the DB. It accumulates a new Manifest locally and
// only publishes it to the DB when Commit is called.
type Transaction struct {
	Snapshot
	db     *DB
	closed bool
}

func (txn *Transaction) Add(docID uint32, terms []uint32) error {
	return txn.apply(NewSingleDocReader(docID, terms))
}

func (txn *Transaction) Update(docID uint32, terms []uint32) error {
	if txn.closed {
		return ErrTransactionClosed
	}
	txn.deleteLocked(docID)
	return txn.apply(NewSingleDocReader(docID, terms))
}

func (txn *Transaction) Delete(docID uint32) error {
	if txn.closed {
		return ErrTransactionClosed
	}
	txn.deleteLocked(docID)
	return nil
}

func (txn *Transaction) DeleteAll() error {
	if txn.closed {
		return ErrTransactionClosed
	}
	txn.manifest.Reset()
	return nil
}

func (txn *Transaction) deleteLocked(docID uint32) {
	for _, segment := range txn.manifest.Segments {
		if segment.Delete(docID) {
			txn.manifest.NumDeletedDocs++
		}
	}
}

func (txn *Transaction) apply(input ValueReader) error {
	if txn.closed {
		return ErrTransactionClosed
	}
	segment, err := txn.db.createSegment(input)
	if err != nil {
		return errors.Wrap(err, "failed to create segment")
	}
	txn.manifest.AddSegment(segment)
	return nil
}

func (txn *Transaction) Commit() error {
	if txn.closed {
		return ErrTransactionClosed
	}
	err := txn.db.commit(txn.manifest)
	if err != nil {
		return err
	}
	txn.closed = true
	return nil
}

func (txn *Transaction) Close() error {
	txn.closed = true
	return nil
}
