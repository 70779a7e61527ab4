package serialization

import (
	"encoding/binary"
	"io"

	"github.com/obolnet/obold/domain/ledger/constants"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/pkg/errors"
)

// maxItemsPerList bounds deserialized list lengths, so that a malformed
// stream cannot cause an arbitrarily large allocation.
const maxItemsPerList = 1 << 20

var errMalformed = errors.New("serialization: malformed data")

// WriteUint16 writes the little endian representation of value to w
func WriteUint16(w io.Writer, value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// WriteUint32 writes the little endian representation of value to w
func WriteUint32(w io.Writer, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// WriteUint64 writes the little endian representation of value to w
func WriteUint64(w io.Writer, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// ReadUint16 reads a little endian uint16 from r
func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// ReadUint32 reads a little endian uint32 from r
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a little endian uint64 from r
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeVarBytes(w io.Writer, data []byte) error {
	err := WriteUint64(w, uint64(len(data)))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.WithStack(err)
}

func readVarBytes(r io.Reader) ([]byte, error) {
	length, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if length > maxItemsPerList {
		return nil, errors.Wrapf(errMalformed, "byte string of length %d is "+
			"longer than the maximum allowed %d", length, maxItemsPerList)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// SerializeOutpoint serializes an outpoint to w
func SerializeOutpoint(w io.Writer, outpoint *model.Outpoint) error {
	if _, err := w.Write(outpoint.TransactionID.ByteSlice()); err != nil {
		return errors.WithStack(err)
	}
	return WriteUint32(w, outpoint.Index)
}

// DeserializeOutpoint deserializes an outpoint from r
func DeserializeOutpoint(r io.Reader) (*model.Outpoint, error) {
	idBytes := make([]byte, model.HashSize)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return nil, errors.WithStack(err)
	}
	transactionID, err := model.NewTransactionIDFromByteSlice(idBytes)
	if err != nil {
		return nil, err
	}
	index, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	return &model.Outpoint{TransactionID: *transactionID, Index: index}, nil
}

// SerializeUTXOEntry serializes a UTXO entry to w
func SerializeUTXOEntry(w io.Writer, entry *model.UTXOEntry) error {
	err := WriteUint64(w, entry.Amount())
	if err != nil {
		return err
	}
	return writeVarBytes(w, entry.OwnerPublicKey())
}

// DeserializeUTXOEntry deserializes a UTXO entry from r
func DeserializeUTXOEntry(r io.Reader) (*model.UTXOEntry, error) {
	amount, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	ownerPublicKey, err := readVarBytes(r)
	if err != nil {
		return nil, err
	}
	return model.NewUTXOEntry(amount, ownerPublicKey), nil
}

// SerializeTransaction serializes a transaction to w, signatures included.
// This is the encoding used on disk and in batch files. The canonical
// signable encoding is the same encoding applied to a transaction whose
// signatures have been blanked out.
func SerializeTransaction(w io.Writer, tx *model.Transaction) error {
	err := WriteUint16(w, tx.Version)
	if err != nil {
		return err
	}

	err = WriteUint64(w, uint64(len(tx.Inputs)))
	if err != nil {
		return err
	}
	for _, input := range tx.Inputs {
		err = SerializeOutpoint(w, &input.PreviousOutpoint)
		if err != nil {
			return err
		}
		err = writeVarBytes(w, input.Signature)
		if err != nil {
			return err
		}
	}

	err = WriteUint64(w, uint64(len(tx.Outputs)))
	if err != nil {
		return err
	}
	for _, output := range tx.Outputs {
		err = WriteUint64(w, output.Value)
		if err != nil {
			return err
		}
		err = writeVarBytes(w, output.OwnerPublicKey)
		if err != nil {
			return err
		}
	}

	return nil
}

// DeserializeTransaction deserializes a transaction from r
func DeserializeTransaction(r io.Reader) (*model.Transaction, error) {
	version, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}

	inputCount, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if inputCount > maxItemsPerList {
		return nil, errors.Wrapf(errMalformed, "input count %d is larger "+
			"than the maximum allowed %d", inputCount, maxItemsPerList)
	}
	inputs := make([]*model.TransactionInput, inputCount)
	for i := range inputs {
		outpoint, err := DeserializeOutpoint(r)
		if err != nil {
			return nil, err
		}
		signature, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		inputs[i] = &model.TransactionInput{
			PreviousOutpoint: *outpoint,
			Signature:        signature,
		}
	}

	outputCount, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if outputCount > maxItemsPerList {
		return nil, errors.Wrapf(errMalformed, "output count %d is larger "+
			"than the maximum allowed %d", outputCount, maxItemsPerList)
	}
	outputs := make([]*model.TransactionOutput, outputCount)
	for i := range outputs {
		value, err := ReadUint64(r)
		if err != nil {
			return nil, err
		}
		ownerPublicKey, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		if len(ownerPublicKey) != constants.OwnerPublicKeySize {
			return nil, errors.Wrapf(errMalformed, "owner public key of "+
				"output %d is %d bytes, while it should be %d",
				i, len(ownerPublicKey), constants.OwnerPublicKeySize)
		}
		outputs[i] = &model.TransactionOutput{
			Value:          value,
			OwnerPublicKey: ownerPublicKey,
		}
	}

	return &model.Transaction{
		Version: version,
		Inputs:  inputs,
		Outputs: outputs,
	}, nil
}

// SerializeTransactionBatch serializes an ordered batch of transactions to w
func SerializeTransactionBatch(w io.Writer, transactions []*model.Transaction) error {
	err := WriteUint64(w, uint64(len(transactions)))
	if err != nil {
		return err
	}
	for _, tx := range transactions {
		err = SerializeTransaction(w, tx)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializeTransactionBatch deserializes an ordered batch of
// transactions from r
func DeserializeTransactionBatch(r io.Reader) ([]*model.Transaction, error) {
	count, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if count > maxItemsPerList {
		return nil, errors.Wrapf(errMalformed, "batch of %d transactions is "+
			"larger than the maximum allowed %d", count, maxItemsPerList)
	}
	transactions := make([]*model.Transaction, count)
	for i := range transactions {
		transactions[i], err = DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
	}
	return transactions, nil
}
