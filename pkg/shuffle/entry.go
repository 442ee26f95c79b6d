package shuffle

// entry is the metadata record for one live allocation. The shuffler is the
// sole owner of both the record and the bytes it points at; callers only
// ever see the borrowed view handed out by Rent.
type entry struct {
	data   []byte // current view into one region's slab
	size   int
	align  int
	handle Handle

	locked    bool // a caller holds the borrowed view; immune to relocation and removal
	toClear   bool // freed; removed at the next compaction that finds it unlocked
	encrypted bool // data currently holds ciphertext
}
