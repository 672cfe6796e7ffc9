package db

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Key layout shared by the leveldb and badger backends.
var (
	blockPrefix = []byte("block/")
	lengthKey   = []byte("meta/length")
)

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockPrefix, index))
}

func encodeLength(n uint64) []byte { return []byte(strconv.FormatUint(n, 10)) }

func decodeLength(raw []byte) (uint64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	return strconv.ParseUint(string(raw), 10, 64)
}

// Bolt keys are fixed-width big-endian so cursor order is index order.
func boltKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}
