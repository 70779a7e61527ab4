package serialization

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/obolnet/obold/domain/ledger/constants"
	"github.com/obolnet/obold/domain/ledger/model"
)

func testTransaction() *model.Transaction {
	var previousIDBytes [model.HashSize]byte
	previousIDBytes[0] = 7
	ownerPublicKey := make([]byte, constants.OwnerPublicKeySize)
	ownerPublicKey[0] = 0x42
	signature := make([]byte, constants.SignatureSize)
	signature[0] = 0x99
	return &model.Transaction{
		Version: constants.TransactionVersion,
		Inputs: []*model.TransactionInput{
			{
				PreviousOutpoint: model.Outpoint{
					TransactionID: *model.NewTransactionIDFromByteArray(&previousIDBytes),
					Index:         3,
				},
				Signature: signature,
			},
		},
		Outputs: []*model.TransactionOutput{
			{Value: 100, OwnerPublicKey: ownerPublicKey},
			{Value: 15, OwnerPublicKey: ownerPublicKey},
		},
	}
}

func TestTransactionSerialization(t *testing.T) {
	tx := testTransaction()
	buffer := &bytes.Buffer{}
	err := SerializeTransaction(buffer, tx)
	if err != nil {
		t.Fatalf("SerializeTransaction: %s", err)
	}

	deserialized, err := DeserializeTransaction(bytes.NewReader(buffer.Bytes()))
	if err != nil {
		t.Fatalf("DeserializeTransaction: %s", err)
	}
	if !reflect.DeepEqual(tx, deserialized) {
		t.Fatalf("The deserialized transaction differs from the original:\n%s\nvs\n%s",
			spew.Sdump(tx), spew.Sdump(deserialized))
	}
}

func TestTransactionDeserializationErrors(t *testing.T) {
	tx := testTransaction()
	buffer := &bytes.Buffer{}
	err := SerializeTransaction(buffer, tx)
	if err != nil {
		t.Fatalf("SerializeTransaction: %s", err)
	}
	serialized := buffer.Bytes()

	// Truncations at any point must fail, never be silently tolerated.
	for length := 0; length < len(serialized); length++ {
		_, err := DeserializeTransaction(bytes.NewReader(serialized[:length]))
		if err == nil {
			t.Fatalf("Deserializing a transaction truncated to %d bytes succeeded", length)
		}
	}

	// An owner public key of the wrong size is rejected at decode time.
	tx.Outputs[0].OwnerPublicKey = tx.Outputs[0].OwnerPublicKey[:16]
	buffer.Reset()
	err = SerializeTransaction(buffer, tx)
	if err != nil {
		t.Fatalf("SerializeTransaction: %s", err)
	}
	_, err = DeserializeTransaction(bytes.NewReader(buffer.Bytes()))
	if err == nil {
		t.Fatalf("Deserializing a transaction with a malformed owner public key succeeded")
	}
}

func TestTransactionBatchSerialization(t *testing.T) {
	batch := []*model.Transaction{testTransaction(), testTransaction()}
	batch[1].Outputs = batch[1].Outputs[:1]

	buffer := &bytes.Buffer{}
	err := SerializeTransactionBatch(buffer, batch)
	if err != nil {
		t.Fatalf("SerializeTransactionBatch: %s", err)
	}
	deserialized, err := DeserializeTransactionBatch(bytes.NewReader(buffer.Bytes()))
	if err != nil {
		t.Fatalf("DeserializeTransactionBatch: %s", err)
	}
	if !reflect.DeepEqual(batch, deserialized) {
		t.Fatalf("The deserialized batch differs from the original:\n%s\nvs\n%s",
			spew.Sdump(batch), spew.Sdump(deserialized))
	}

	empty, err := DeserializeTransactionBatch(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("DeserializeTransactionBatch: %s", err)
	}
	if len(empty) != 0 {
		t.Fatalf("Expected an empty batch, got %d transactions", len(empty))
	}
}

func TestPoolSnapshotSerialization(t *testing.T) {
	ownerPublicKey := make([]byte, constants.OwnerPublicKeySize)
	ownerPublicKey[0] = 0x42
	snapshot := map[model.Outpoint]*model.UTXOEntry{}
	for i := byte(1); i <= 3; i++ {
		var transactionIDBytes [model.HashSize]byte
		transactionIDBytes[0] = i
		outpoint := model.Outpoint{
			TransactionID: *model.NewTransactionIDFromByteArray(&transactionIDBytes),
			Index:         uint32(i),
		}
		snapshot[outpoint] = model.NewUTXOEntry(uint64(i)*100, ownerPublicKey)
	}

	buffer := &bytes.Buffer{}
	err := SerializePoolSnapshot(buffer, snapshot)
	if err != nil {
		t.Fatalf("SerializePoolSnapshot: %s", err)
	}
	deserialized, err := DeserializePoolSnapshot(bytes.NewReader(buffer.Bytes()))
	if err != nil {
		t.Fatalf("DeserializePoolSnapshot: %s", err)
	}
	if len(deserialized) != len(snapshot) {
		t.Fatalf("Expected %d entries, got %d", len(snapshot), len(deserialized))
	}
	for outpoint, entry := range snapshot {
		deserializedEntry, ok := deserialized[outpoint]
		if !ok {
			t.Fatalf("Outpoint %s is missing from the deserialized snapshot", outpoint)
		}
		if !deserializedEntry.Equal(entry) {
			t.Fatalf("Entry for outpoint %s differs: %v vs %v", outpoint, entry, deserializedEntry)
		}
	}

	// Serialization is deterministic regardless of map iteration order.
	otherBuffer := &bytes.Buffer{}
	err = SerializePoolSnapshot(otherBuffer, deserialized)
	if err != nil {
		t.Fatalf("SerializePoolSnapshot: %s", err)
	}
	if !bytes.Equal(buffer.Bytes(), otherBuffer.Bytes()) {
		t.Fatalf("Serializing the same snapshot twice produced different bytes")
	}
}
