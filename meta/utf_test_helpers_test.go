package meta

import "encoding/binary"

// utfFixtureCol names one column of a fixture table and its criutf value
// type (kind: u16, u32, string or data).
type utfFixtureCol struct {
	name string
	kind byte // 0x03 u16, 0x05 u32, 0x0B string, 0x0C data
}

// utfRowValue holds one cell's contribution for a fixture row: either a
// u16/u32, a string (resolved against the shared string pool), or a data
// region's raw bytes (appended to the data pool and referenced by offset).
type utfRowValue struct {
	u16  uint16
	u32  uint32
	str  string
	data []byte
}

// buildUTFFixture assembles a minimal but complete @UTF table (spec.md
// §4.2.1) for tests that need more than criutf's own package-internal
// fixture: tableName, a list of per-row columns, and one utfRowValue per
// (row, column) in row-major order matching cols.
func buildUTFFixture(tableName string, cols []utfFixtureCol, rows [][]utfRowValue) []byte {
	const headerLen = 32
	const storagePerRow = 0x50

	rowWidth := 0
	for _, c := range cols {
		switch c.kind {
		case 0x03: // u16
			rowWidth += 2
		case 0x05: // u32
			rowWidth += 4
		case 0x0B: // string (offset into string pool)
			rowWidth += 4
		case 0x0C: // data (offset+size pair)
			rowWidth += 8
		}
	}
	schemaLen := len(cols) * 5

	rowsOffset := int64(headerLen + schemaLen)
	rowsEnd := rowsOffset + int64(len(rows)*rowWidth)

	// String pool: table name, column names, then every string cell value
	// (deduplicated by first occurrence is not required; duplicates just
	// waste a few bytes).
	var strBuf []byte
	strOff := map[string]int64{}
	intern := func(s string) int64 {
		if off, ok := strOff[s]; ok {
			return off
		}
		off := int64(len(strBuf))
		strOff[s] = off
		strBuf = append(strBuf, []byte(s)...)
		strBuf = append(strBuf, 0)
		return off
	}
	intern(tableName)
	for _, c := range cols {
		intern(c.name)
	}
	for _, row := range rows {
		for i, v := range row {
			if cols[i].kind == 0x0B {
				intern(v.str)
			}
		}
	}

	stringsOffset := rowsEnd

	// Data pool: every data-cell's raw bytes, back to back.
	var dataBuf []byte
	dataOff := map[int]int64{} // flat row*len(cols)+col -> offset
	for ri, row := range rows {
		for ci, v := range row {
			if cols[ci].kind == 0x0C {
				off := int64(len(dataBuf))
				dataBuf = append(dataBuf, v.data...)
				dataOff[ri*len(cols)+ci] = off
			}
		}
	}

	dataOffset := stringsOffset + int64(len(strBuf))
	envelopeSize := dataOffset + int64(len(dataBuf))

	body := make([]byte, envelopeSize)
	body[2] = 1
	binary.BigEndian.PutUint32(body[8:], uint32(rowsOffset))
	binary.BigEndian.PutUint32(body[12:], uint32(stringsOffset))
	binary.BigEndian.PutUint32(body[16:], uint32(dataOffset))
	binary.BigEndian.PutUint32(body[20:], uint32(strOff[tableName]))
	binary.BigEndian.PutUint16(body[24:], uint16(len(cols)))
	binary.BigEndian.PutUint16(body[26:], uint16(rowWidth))
	binary.BigEndian.PutUint32(body[28:], uint32(len(rows)))

	pos := int64(headerLen)
	for _, c := range cols {
		body[pos] = storagePerRow | c.kind
		binary.BigEndian.PutUint32(body[pos+1:], uint32(strOff[c.name]))
		pos += 5
	}

	for ri, row := range rows {
		rowPos := rowsOffset + int64(ri*rowWidth)
		cellPos := rowPos
		for ci, v := range row {
			switch cols[ci].kind {
			case 0x03:
				binary.BigEndian.PutUint16(body[cellPos:], v.u16)
				cellPos += 2
			case 0x05:
				binary.BigEndian.PutUint32(body[cellPos:], v.u32)
				cellPos += 4
			case 0x0B:
				binary.BigEndian.PutUint32(body[cellPos:], uint32(strOff[v.str]))
				cellPos += 4
			case 0x0C:
				off := dataOff[ri*len(cols)+ci]
				binary.BigEndian.PutUint32(body[cellPos:], uint32(off))
				binary.BigEndian.PutUint32(body[cellPos+4:], uint32(len(v.data)))
				cellPos += 8
			}
		}
	}

	copy(body[stringsOffset:], strBuf)
	copy(body[dataOffset:], dataBuf)

	out := make([]byte, 8+len(body))
	copy(out[0:], "@UTF")
	binary.BigEndian.PutUint32(out[4:], uint32(envelopeSize))
	copy(out[8:], body)
	return out
}
