package utxopool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/obolnet/obold/domain/ledger/model"
)

// utxoCollection represents a set of UTXO entries indexed by their outpoints
type utxoCollection map[model.Outpoint]*model.UTXOEntry

func (uc utxoCollection) String() string {
	utxoStrings := make([]string, len(uc))

	i := 0
	for outpoint, entry := range uc {
		utxoStrings[i] = fmt.Sprintf("(%s, %d) => %d", outpoint.TransactionID, outpoint.Index, entry.Amount())
		i++
	}

	// Sort strings for determinism.
	sort.Strings(utxoStrings)

	return fmt.Sprintf("[ %s ]", strings.Join(utxoStrings, ", "))
}

// add adds a new UTXO entry to this collection
func (uc utxoCollection) add(outpoint model.Outpoint, entry *model.UTXOEntry) {
	uc[outpoint] = entry
}

// remove removes a UTXO entry from this collection if it exists
func (uc utxoCollection) remove(outpoint model.Outpoint) {
	delete(uc, outpoint)
}

// get returns the entry represented by provided outpoint,
// and a boolean value indicating if said entry is in the collection or not
func (uc utxoCollection) get(outpoint model.Outpoint) (*model.UTXOEntry, bool) {
	entry, ok := uc[outpoint]
	return entry, ok
}

// contains returns a boolean value indicating whether a UTXO entry is in the collection
func (uc utxoCollection) contains(outpoint model.Outpoint) bool {
	_, ok := uc[outpoint]
	return ok
}

// clone returns a clone of this collection
func (uc utxoCollection) clone() utxoCollection {
	clone := make(utxoCollection, len(uc))
	for outpoint, entry := range uc {
		clone.add(outpoint, entry)
	}

	return clone
}
