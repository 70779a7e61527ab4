package serialization

import (
	"bytes"
	"io"
	"sort"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/pkg/errors"
)

// SerializePoolSnapshot serializes a UTXO pool snapshot to w. Entries are
// written sorted by outpoint, so equal snapshots always serialize to equal
// bytes.
func SerializePoolSnapshot(w io.Writer, snapshot map[model.Outpoint]*model.UTXOEntry) error {
	outpoints := make([]model.Outpoint, 0, len(snapshot))
	for outpoint := range snapshot {
		outpoints = append(outpoints, outpoint)
	}
	sort.Slice(outpoints, func(i, j int) bool {
		idCompare := bytes.Compare(outpoints[i].TransactionID.ByteSlice(), outpoints[j].TransactionID.ByteSlice())
		if idCompare != 0 {
			return idCompare < 0
		}
		return outpoints[i].Index < outpoints[j].Index
	})

	err := WriteUint64(w, uint64(len(outpoints)))
	if err != nil {
		return err
	}
	for _, outpoint := range outpoints {
		err = SerializeOutpoint(w, &outpoint)
		if err != nil {
			return err
		}
		err = SerializeUTXOEntry(w, snapshot[outpoint])
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializePoolSnapshot deserializes a UTXO pool snapshot from r
func DeserializePoolSnapshot(r io.Reader) (map[model.Outpoint]*model.UTXOEntry, error) {
	count, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if count > maxItemsPerList {
		return nil, errors.Wrapf(errMalformed, "pool snapshot of %d entries is "+
			"larger than the maximum allowed %d", count, maxItemsPerList)
	}

	snapshot := make(map[model.Outpoint]*model.UTXOEntry, count)
	for i := uint64(0); i < count; i++ {
		outpoint, err := DeserializeOutpoint(r)
		if err != nil {
			return nil, err
		}
		entry, err := DeserializeUTXOEntry(r)
		if err != nil {
			return nil, err
		}
		if _, ok := snapshot[*outpoint]; ok {
			return nil, errors.Wrapf(errMalformed, "duplicate outpoint %s in pool snapshot", outpoint)
		}
		snapshot[*outpoint] = entry
	}
	return snapshot, nil
}
