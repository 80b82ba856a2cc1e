package streamfile

// Wrap is a pass-through identity wrapper. It exists solely to give a
// caller its own Close without affecting the inner source's lifetime
// tracking — two wrappers sharing one inner File each call Close
// independently and the inner is only truly released by its owner.
type Wrap struct {
	inner File
}

func NewWrap(inner File) *Wrap { return &Wrap{inner: inner} }

func (w *Wrap) ReadAt(p []byte, offset int64) (int, error) { return w.inner.ReadAt(p, offset) }
func (w *Wrap) Size() int64                                { return w.inner.Size() }
func (w *Wrap) Name() string                                { return w.inner.Name() }
func (w *Wrap) OpenSibling(name string) (File, error)       { return w.inner.OpenSibling(name) }
func (w *Wrap) Close() error                                { return nil }

// Clamp restricts the visible range of inner to [start, start+size).
type Clamp struct {
	inner File
	start int64
	size  int64
}

func NewClamp(inner File, start, size int64) *Clamp {
	return &Clamp{inner: inner, start: start, size: size}
}

func (c *Clamp) ReadAt(p []byte, offset int64) (int, error) {
	if offset < 0 || offset >= c.size {
		return 0, nil
	}
	maxLen := c.size - offset
	if int64(len(p)) > maxLen {
		p = p[:maxLen]
	}
	return c.inner.ReadAt(p, c.start+offset)
}

func (c *Clamp) Size() int64  { return c.size }
func (c *Clamp) Name() string { return c.inner.Name() }

func (c *Clamp) OpenSibling(name string) (File, error) { return c.inner.OpenSibling(name) }
func (c *Clamp) Close() error                          { return c.inner.Close() }

// FakeName overrides the filename/extension reported by an inner source
// while delegating everything else. Metas key a format-specific inner
// parser off the expected extension; FakeName lets a container meta hand a
// sub-region to that inner parser under the extension it expects.
type FakeName struct {
	inner File
	name  string
}

func NewFakeName(inner File, name string) *FakeName {
	return &FakeName{inner: inner, name: name}
}

func (f *FakeName) ReadAt(p []byte, offset int64) (int, error) { return f.inner.ReadAt(p, offset) }
func (f *FakeName) Size() int64                                { return f.inner.Size() }
func (f *FakeName) Name() string                                { return f.name }
func (f *FakeName) OpenSibling(name string) (File, error)       { return f.inner.OpenSibling(name) }
func (f *FakeName) Close() error                                { return f.inner.Close() }

// NewSubfile is Clamp composed with FakeName, the standard way a container
// meta (CPK, ACB, AAX, ...) hands a sub-region of itself to an inner meta
// under the name/extension that inner meta expects.
func NewSubfile(inner File, start, size int64, fakeName string) File {
	return NewFakeName(NewClamp(inner, start, size), fakeName)
}

// ReadTransform is a user-supplied per-byte transform applied after reading
// through an inner source. It must be a pure function of (dst, offset,
// length) plus its own state: the same range read twice must produce the
// same transformed bytes (spec.md §4.1 idempotence requirement), which
// rules out any transform that mutates hidden state as a side effect of
// being read out of order. Transforms that are inherently sequential
// (Minecraft's evolving XOR key) document the requirement to re-decrypt
// from the last known offset instead of violating it silently.
type ReadTransform interface {
	Transform(dst []byte, offset int64, inner File) (int, error)
}

// IO is the generic transform wrapper: it reads length bytes from inner
// through a caller-supplied ReadTransform. Every XOR/cipher/rebuild wrapper
// in this package (XORKey, XXTEA, ENTHRotate, MinecraftHash, Xorshift2048,
// BGWATRAC3Key, RPGMakerOgg, ZeroMask) is implemented as an IO
// configuration plus a small ReadTransform; WwiseOpusOgg and EAXMA instead
// rebuild their stream once into memory and serve it through MemFile,
// Clamp and FakeName.
type IO struct {
	inner     File
	transform ReadTransform
	closeFn   func() error
}

func NewIO(inner File, transform ReadTransform, closeFn func() error) *IO {
	return &IO{inner: inner, transform: transform, closeFn: closeFn}
}

func (w *IO) ReadAt(p []byte, offset int64) (int, error) {
	return w.transform.Transform(p, offset, w.inner)
}

func (w *IO) Size() int64  { return w.inner.Size() }
func (w *IO) Name() string { return w.inner.Name() }

func (w *IO) OpenSibling(name string) (File, error) { return w.inner.OpenSibling(name) }

func (w *IO) Close() error {
	if w.closeFn != nil {
		if err := w.closeFn(); err != nil {
			return err
		}
	}
	return w.inner.Close()
}

// Deblock virtualizes the stream as if only one of numChunks interleaved
// chunks of chunkSize bytes, starting at streamStart, were present. Logical
// offset l maps to physical offset streamStart + (l/chunkSize)*strideSize +
// l%chunkSize, where strideSize = chunkSize*numChunks is the distance
// between successive copies of "our" chunk.
type Deblock struct {
	inner       File
	streamStart int64
	chunkSize   int64
	numChunks   int64
	size        int64 // logical size, 0 means derive from inner.Size()
}

func NewDeblock(inner File, streamStart, chunkSize, numChunks, logicalSize int64) *Deblock {
	return &Deblock{inner: inner, streamStart: streamStart, chunkSize: chunkSize, numChunks: numChunks, size: logicalSize}
}

func (d *Deblock) physical(logical int64) int64 {
	block := logical / d.chunkSize
	within := logical % d.chunkSize
	stride := d.chunkSize * d.numChunks
	return d.streamStart + block*stride + within
}

func (d *Deblock) ReadAt(p []byte, offset int64) (int, error) {
	total := 0
	for total < len(p) {
		logical := offset + int64(total)
		withinChunk := d.chunkSize - (logical % d.chunkSize)
		chunkLen := int64(len(p) - total)
		if chunkLen > withinChunk {
			chunkLen = withinChunk
		}
		n, err := d.inner.ReadAt(p[total:int64(total)+chunkLen], d.physical(logical))
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (d *Deblock) Size() int64 {
	if d.size > 0 {
		return d.size
	}
	return d.inner.Size()
}

func (d *Deblock) Name() string                                { return d.inner.Name() }
func (d *Deblock) OpenSibling(name string) (File, error)       { return d.inner.OpenSibling(name) }
func (d *Deblock) Close() error                                { return d.inner.Close() }
