package hashtable

import (
	"fmt"
	"unsafe"
)

type entry struct {
	key   Ref
	value Ref
	hash  uint32
	next  uint32 // index of the next entry in the chain, 0 ends it
}

const (
	entrySize       = int(unsafe.Sizeof(entry{}))
	blockHeaderSize = int(unsafe.Sizeof([]entry(nil)))
)

// entryStore is an append-only array of entries, organised as a hashed
// array tree. Appending never copies more than one block, so growing the
// store does not cause the memory spikes a single large slice would.
//
// Entry 0 is never handed out: index 0 marks the end of a chain.
type entryStore struct {
	mask      uint32
	maskShift uint32
	blockSize uint32

	size      uint32
	blockList [][]entry

	alloc     Allocator
	allocated int
}

func newEntryStore(alloc Allocator) (*entryStore, error) {
	// start with a small block size
	const blockSizePower = 2
	const blockSize = 1 << blockSizePower

	if err := alloc.Allocate(blockSize * blockHeaderSize); err != nil {
		return nil, err
	}

	s := &entryStore{
		mask:      blockSize - 1,
		maskShift: blockSizePower,
		blockSize: blockSize,
		blockList: make([][]entry, blockSize),
		alloc:     alloc,
		allocated: blockSize * blockHeaderSize,
	}

	if err := s.reserve(); err != nil {
		s.release()
		return nil, err
	}
	// reserve the null entry
	s.size++

	return s, nil
}

func (s *entryStore) index(pos uint32) (idx, subIdx uint32) {
	subIdx = pos & s.mask
	idx = pos >> s.maskShift
	return
}

// reserve makes sure the entry at position s.size can be written. It does
// not change the number of stored entries, so a failed or unused
// reservation is invisible.
func (s *entryStore) reserve() error {
	idx, subIdx := s.index(s.size)
	if int(idx) == len(s.blockList) {
		// blockList is too small -> double list and block size
		newBlockSize := s.blockSize * 2
		extra := int(newBlockSize-s.blockSize) * blockHeaderSize
		if err := s.alloc.Allocate(extra); err != nil {
			return err
		}
		s.allocated += extra

		oldBlocks := s.blockList
		s.blockList = make([][]entry, newBlockSize)

		// pairwise merging of blocks
		for i := 0; i < len(oldBlocks); i += 2 {
			block := make([]entry, 0, newBlockSize)
			block = append(block, oldBlocks[i]...)
			block = append(block, oldBlocks[i+1]...)
			s.blockList[i/2] = block
			// allow GC
			oldBlocks[i] = nil
			oldBlocks[i+1] = nil
		}

		s.blockSize = newBlockSize
		s.mask = s.mask*2 + 1
		s.maskShift++
		idx, subIdx = s.index(s.size)
	}

	if subIdx == 0 && s.blockList[idx] == nil {
		// new entry batch
		n := int(s.blockSize) * entrySize
		if err := s.alloc.Allocate(n); err != nil {
			return err
		}
		s.allocated += n
		s.blockList[idx] = make([]entry, s.blockSize)
	}
	return nil
}

// add stores e at the position prepared by reserve and returns its index.
func (s *entryStore) add(e entry) uint32 {
	pos := s.size
	idx, subIdx := s.index(pos)
	s.blockList[idx][subIdx] = e
	s.size++
	return pos
}

func (s *entryStore) ref(pos uint32) *entry {
	if pos == 0 || pos >= s.size {
		panic(fmt.Sprintf("entry index %d out of bounds %d", pos, s.size))
	}
	idx, subIdx := s.index(pos)
	return &s.blockList[idx][subIdx]
}

// len returns the number of stored entries, without the null entry.
func (s *entryStore) len() uint32 {
	return s.size - 1
}

func (s *entryStore) release() {
	s.alloc.Free(s.allocated)
	s.allocated = 0
	s.blockList = nil
	s.size = 0
}
