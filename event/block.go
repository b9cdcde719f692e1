package event

// Block is the minimal view of a block needed for change tracking:
// its identity and the hashes of the transactions it contains.
type Block struct {
	// Number is the block height.
	Number uint64

	// Hash is the block hash.
	Hash Hash

	// Transactions holds the hashes of the block's transactions,
	// in their order within the block.
	Transactions []Hash
}
