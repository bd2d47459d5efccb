package sstable

import "bloomjoin/internal/model"

// IterateDataFile decodes every record of one .data file, in key order,
// by walking its blocks sequentially and resetting the shared-prefix
// chain at each block boundary the same way the writer does. The
// teacher's reader only ever looks up one key via the summary/index
// chain; the hierarchy builder (component D) needs every record in
// order, which this adds.
func (m *Manager) IterateDataFile(dataPath string) ([]model.Record, error) {
	hdr, err := m.readFileHeader(dataPath)
	if err != nil {
		return nil, err
	}

	numBlocks, err := m.countBlocks(dataPath, hdr.blockSize)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for blockNo := uint64(0); blockNo < numBlocks; blockNo++ {
		payload, err := m.readPayloadBlock(dataPath, hdr.blockSize, blockNo)
		if err != nil {
			return nil, err
		}

		start := 0
		if blockNo == 0 {
			start = 8 // header: magic(4) + blockSize(u16) + flags(u16)
		}

		prevKey := ""
		off := start
		for off < len(payload) {
			rec, consumed, err := decodeDataRecord(payload[off:], prevKey)
			if err != nil {
				return nil, err
			}
			if consumed == 0 {
				break
			}
			records = append(records, rec)
			prevKey = rec.Key
			off += consumed
		}
	}

	return records, nil
}
