package wal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
)

const (
	OpDelete byte = 0
	OpPut    byte = 1
)

// WALRecord is one WAL entry. CFLen/CF tag which column family the record
// belongs to, needed because the WAL is shared across every CF of a
// store: on replay a record must be routed back to its own memtable.
type WALRecord struct {
	CRC32     uint32
	Seq       uint64
	ExpiresAt uint64
	OpType    byte // 0 = DELETE, 1 = PUT
	CFLen     uint32
	KeyLen    uint32
	ValueLen  uint32
	CF        []byte
	Key       []byte
	Value     []byte
}

// Serialize binarizes a WAL record.
func (r *WALRecord) Serialize() []byte {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.LittleEndian, r.CRC32)
	binary.Write(buffer, binary.LittleEndian, r.Seq)
	binary.Write(buffer, binary.LittleEndian, r.ExpiresAt)
	binary.Write(buffer, binary.LittleEndian, r.OpType)
	binary.Write(buffer, binary.LittleEndian, r.CFLen)
	binary.Write(buffer, binary.LittleEndian, r.KeyLen)
	binary.Write(buffer, binary.LittleEndian, r.ValueLen)
	buffer.Write(r.CF)
	buffer.Write(r.Key)
	buffer.Write(r.Value)
	return buffer.Bytes()
}

// NewWALRecord builds a WAL record for one column family and computes its
// CRC32 over everything after the CRC field itself.
func NewWALRecord(cf string, seq uint64, expiresAt uint64, opType byte, key []byte, value []byte) *WALRecord {
	wal := WALRecord{
		CRC32:     0, // computed below once the rest of the record is fixed
		Seq:       seq,
		ExpiresAt: expiresAt,
		OpType:    opType,
		CFLen:     uint32(len(cf)),
		KeyLen:    uint32(len(key)),
		ValueLen:  uint32(len(value)),
		CF:        []byte(cf),
		Key:       key,
		Value:     value,
	}
	serialized := wal.Serialize()
	wal.CRC32 = crc32.ChecksumIEEE(serialized[4:])
	return &wal
}

type WALSegmentHeader struct {
	Magic         [4]byte
	BlockSize     int
	SegmentBlocks int
}

type WALSegment struct {
	File     *os.File
	FilePath string
}

type WALManager struct {
	DirPath        string
	MaxSegmentSize int64
	CurrentSegment *WALSegment
	SegmentID      int
}
