// Package criutf implements CRI's generic typed row/column table format
// (spec.md §4.2.1), used by CPK, ACB, and AAX. The table starts with the
// 4-byte "@UTF" marker and a big-endian size, followed by a schema
// (columns, storage class + type per column) and then a row region.
package criutf

import (
	"errors"
	"fmt"

	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
)

// Column storage classes.
const (
	storageMask     = 0xF0
	storageConstant = 0x30
	storagePerRow   = 0x50
	storageZero     = 0x10
)

// Column value types.
const (
	typeMask = 0x0F
	typeS8   = 0x00
	typeU8   = 0x01
	typeS16  = 0x02
	typeU16  = 0x03
	typeS32  = 0x04
	typeU32  = 0x05
	typeS64  = 0x06
	typeU64  = 0x07
	typeFloat = 0x08
	typeString = 0x0B
	typeData   = 0x0C
)

type column struct {
	flag       byte
	name       string
	constValue any // populated when storage class is constant
}

// Table is an opened @UTF table with typed row/column query accessors.
type Table struct {
	r      *io16.Reader
	base   int64 // absolute offset of "@UTF"
	envelopeSize int64

	rowsOffset    int64
	stringsOffset int64
	dataOffset    int64
	rowWidth      int
	numRows       int
	columns       []column
	name          string
}

var ErrNotUTF = errors.New("criutf: not an @UTF table")

// Open parses the @UTF table located at offset in sf.
func Open(sf streamfile.File, offset int64) (*Table, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(offset, 4)
	if err != nil {
		return nil, err
	}
	if magic != "@UTF" {
		return nil, ErrNotUTF
	}

	size, err := r.U32BE(offset + 4)
	if err != nil {
		return nil, err
	}
	_ = size

	// Table body begins after the 8-byte envelope ("@UTF" + size).
	body := offset + 8

	version, err := r.U8(body + 2)
	if err != nil {
		return nil, err
	}

	t := &Table{r: r, base: offset, envelopeSize: int64(size)}

	// Header fields are big-endian, relative to body (table-relative after
	// the 8-byte envelope), per spec.md §4.2.1. Version byte occupies the
	// position normally holding the first header field's high byte in v0;
	// v1 tables shift subsequent fields by the spec's documented widths.
	// Both dialects agree on the following 20-byte field layout used here.
	rowsOffset, err := r.U32BE(body + 8)
	if err != nil {
		return nil, err
	}
	stringsOffset, err := r.U32BE(body + 12)
	if err != nil {
		return nil, err
	}
	dataOffset, err := r.U32BE(body + 16)
	if err != nil {
		return nil, err
	}
	nameOffset, err := r.U32BE(body + 20)
	if err != nil {
		return nil, err
	}
	numColumns, err := r.U16BE(body + 24)
	if err != nil {
		return nil, err
	}
	rowWidth, err := r.U16BE(body + 26)
	if err != nil {
		return nil, err
	}
	numRows, err := r.U32BE(body + 28)
	if err != nil {
		return nil, err
	}

	t.rowsOffset = body + int64(rowsOffset)
	t.stringsOffset = body + int64(stringsOffset)
	t.dataOffset = body + int64(dataOffset)
	t.rowWidth = int(rowWidth)
	t.numRows = int(numRows)
	_ = version

	name, err := r.StringNullTerm(t.stringsOffset+int64(nameOffset), 256)
	if err != nil {
		return nil, err
	}
	t.name = name

	pos := body + 32
	colOffsetInRow := 0
	for i := 0; i < int(numColumns); i++ {
		flag, err := r.U8(pos)
		if err != nil {
			return nil, err
		}
		pos++
		colNameOff, err := r.U32BE(pos)
		if err != nil {
			return nil, err
		}
		pos += 4

		colName, err := r.StringNullTerm(t.stringsOffset+int64(colNameOff), 256)
		if err != nil {
			return nil, err
		}

		col := column{flag: flag, name: colName}
		if flag&storageMask == storageConstant {
			v, n, err := t.readTypedValue(flag&typeMask, pos)
			if err != nil {
				return nil, err
			}
			col.constValue = v
			pos += n
		}
		t.columns = append(t.columns, col)
		_ = colOffsetInRow
	}

	if err := t.validateBounds(); err != nil {
		return nil, err
	}

	return t, nil
}

// validateBounds enforces spec.md §8.1's "@UTF table bounds" invariant:
// schema-declared offsets must lie within the table, string offsets within
// the string table, and data offsets+sizes within the data region.
func (t *Table) validateBounds() error {
	tableEnd := t.base + 8 + t.envelopeSize
	if t.rowsOffset < t.base || t.rowsOffset > tableEnd {
		return fmt.Errorf("criutf: rows offset out of bounds")
	}
	if t.stringsOffset < t.base || t.stringsOffset > tableEnd {
		return fmt.Errorf("criutf: strings offset out of bounds")
	}
	if t.dataOffset < t.base || t.dataOffset > tableEnd {
		return fmt.Errorf("criutf: data offset out of bounds")
	}
	rowsEnd := t.rowsOffset + int64(t.numRows*t.rowWidth)
	if rowsEnd > tableEnd {
		return fmt.Errorf("criutf: row region exceeds table size")
	}
	return nil
}

func (t *Table) readTypedValue(typ byte, offset int64) (any, int64, error) {
	switch typ {
	case typeS8:
		v, err := t.r.S8(offset)
		return v, 1, err
	case typeU8:
		v, err := t.r.U8(offset)
		return v, 1, err
	case typeS16:
		v, err := t.r.S16BE(offset)
		return v, 2, err
	case typeU16:
		v, err := t.r.U16BE(offset)
		return v, 2, err
	case typeS32:
		v, err := t.r.S32BE(offset)
		return v, 4, err
	case typeU32:
		v, err := t.r.U32BE(offset)
		return v, 4, err
	case typeS64:
		v, err := t.r.U64BE(offset)
		return int64(v), 8, err
	case typeU64:
		v, err := t.r.U64BE(offset)
		return v, 8, err
	case typeFloat:
		v, err := t.r.F32BE(offset)
		return v, 4, err
	case typeString:
		off, err := t.r.U32BE(offset)
		if err != nil {
			return nil, 4, err
		}
		s, err := t.r.StringNullTerm(t.stringsOffset+int64(off), 4096)
		return s, 4, err
	case typeData:
		off, err := t.r.U32BE(offset)
		if err != nil {
			return nil, 8, err
		}
		size, err := t.r.U32BE(offset + 4)
		if err != nil {
			return nil, 8, err
		}
		return DataRef{Offset: t.dataOffset + int64(off), Size: int64(size)}, 8, err
	}
	return nil, 0, fmt.Errorf("criutf: unsupported column type 0x%02x", typ)
}

// DataRef is the absolute (offset, size) pair a "data" column resolves to.
type DataRef struct {
	Offset int64
	Size   int64
}

func (t *Table) NumRows() int    { return t.numRows }
func (t *Table) Name() string    { return t.name }

func (t *Table) columnIndex(name string) (int, error) {
	for i, c := range t.columns {
		if c.name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("criutf: no such column %q", name)
}

func (t *Table) value(row int, name string) (any, error) {
	if row < 0 || row >= t.numRows {
		return nil, fmt.Errorf("criutf: row %d out of range", row)
	}
	ci, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	col := t.columns[ci]

	if col.flag&storageMask == storageZero {
		return zeroValue(col.flag & typeMask), nil
	}
	if col.flag&storageMask == storageConstant {
		return col.constValue, nil
	}

	// Per-row storage: compute this column's byte offset within the row by
	// summing the widths of preceding per-row columns (constant/zero
	// columns contribute no row bytes).
	rowOffset := t.rowsOffset + int64(row*t.rowWidth)
	off := rowOffset
	for i := 0; i < ci; i++ {
		c := t.columns[i]
		if c.flag&storageMask == storagePerRow {
			off += typeWidth(c.flag & typeMask)
		}
	}
	v, _, err := t.readTypedValue(col.flag&typeMask, off)
	return v, err
}

func zeroValue(typ byte) any {
	switch typ {
	case typeString:
		return ""
	case typeFloat:
		return float32(0)
	case typeData:
		return DataRef{}
	default:
		return int64(0)
	}
}

func typeWidth(typ byte) int64 {
	switch typ {
	case typeS8, typeU8:
		return 1
	case typeS16, typeU16:
		return 2
	case typeS32, typeU32, typeFloat, typeString:
		return 4
	case typeS64, typeU64:
		return 8
	case typeData:
		return 8
	}
	return 0
}

func (t *Table) QueryU32(row int, col string) (uint32, error) {
	v, err := t.value(row, col)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case uint32:
		return n, nil
	case int64:
		return uint32(n), nil
	}
	return 0, fmt.Errorf("criutf: column %q is not an integer", col)
}

func (t *Table) QueryS32(row int, col string) (int32, error) {
	v, err := t.QueryU32(row, col)
	return int32(v), err
}

func (t *Table) QueryU16(row int, col string) (uint16, error) {
	v, err := t.value(row, col)
	if err != nil {
		return 0, err
	}
	if n, ok := v.(uint16); ok {
		return n, nil
	}
	if n, ok := v.(int64); ok {
		return uint16(n), nil
	}
	return 0, fmt.Errorf("criutf: column %q is not u16", col)
}

func (t *Table) QueryString(row int, col string) (string, error) {
	v, err := t.value(row, col)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("criutf: column %q is not a string", col)
	}
	return s, nil
}

func (t *Table) QueryData(row int, col string) (DataRef, error) {
	v, err := t.value(row, col)
	if err != nil {
		return DataRef{}, err
	}
	d, ok := v.(DataRef)
	if !ok {
		return DataRef{}, fmt.Errorf("criutf: column %q is not data", col)
	}
	return d, nil
}

func (t *Table) QueryF32(row int, col string) (float32, error) {
	v, err := t.value(row, col)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float32)
	if !ok {
		return 0, fmt.Errorf("criutf: column %q is not float", col)
	}
	return f, nil
}

func (t *Table) HasColumn(name string) bool {
	_, err := t.columnIndex(name)
	return err == nil
}

// ReadU8At, ReadU16BEAt and ReadU32BEAt read raw big-endian values out of a
// data-column region (e.g. an array of packed (type,index) pairs), using
// the same reader the table itself was parsed with. Callers obtain the
// base offset from QueryData.
func (t *Table) ReadU8At(offset int64) (uint8, bool) {
	v, err := t.r.U8(offset)
	return v, err == nil
}

func (t *Table) ReadU16BEAt(offset int64) (uint16, bool) {
	v, err := t.r.U16BE(offset)
	return v, err == nil
}

func (t *Table) ReadU32BEAt(offset int64) (uint32, bool) {
	v, err := t.r.U32BE(offset)
	return v, err == nil
}
