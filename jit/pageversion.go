package jit

// Guest physical pages are fixed 4KiB; the page-version oracle tracks one
// counter per page number (paddr >> PageShift).
const (
	PageShift = 12
	PageSize  = 1 << PageShift
)

// PageVersionSnapshot records the version one physical code page had when a
// block's code bytes were read by the compiler.
type PageVersionSnapshot struct {
	Page    uint64
	Version uint64
}

// BlockMeta is the staleness witness captured at compile time: the byte
// span of the block's guest code and the version of every page that span
// touches. A compiled artifact is valid only while all captured versions
// still match the oracle.
type BlockMeta struct {
	CodeAddr uint64
	ByteLen  uint32
	Pages    []PageVersionSnapshot
}

// PageVersions is the page-version oracle: a side-table of monotonically
// increasing per-page counters advanced only when a guest store touches the
// page. Memory contents are never scanned; version mismatch alone proves a
// block's code bytes may have changed.
type PageVersions struct {
	versions map[uint64]uint64
}

// NewPageVersions creates an empty oracle. Every page starts at version 0.
func NewPageVersions() *PageVersions {
	return &PageVersions{versions: make(map[uint64]uint64)}
}

// OnGuestWrite advances the version of every page the write range touches.
// Pure bookkeeping: no cache interaction, no statistics. Zero-length writes
// touch nothing.
func (pv *PageVersions) OnGuestWrite(paddr uint64, length int) {
	if length <= 0 {
		return
	}
	first := paddr >> PageShift
	last := (paddr + uint64(length) - 1) >> PageShift
	for page := first; ; page++ {
		pv.versions[page]++
		if page == last {
			break
		}
	}
}

// Snapshot captures the current version of every page spanning the given
// code byte range. A zero byteLen still pins the entry page so no block is
// ever metadata-free.
func (pv *PageVersions) Snapshot(codeAddr uint64, byteLen uint32) BlockMeta {
	span := byteLen
	if span == 0 {
		span = 1
	}
	first := codeAddr >> PageShift
	last := (codeAddr + uint64(span) - 1) >> PageShift
	pages := make([]PageVersionSnapshot, 0, last-first+1)
	for page := first; ; page++ {
		pages = append(pages, PageVersionSnapshot{Page: page, Version: pv.versions[page]})
		if page == last {
			break
		}
	}
	return BlockMeta{CodeAddr: codeAddr, ByteLen: byteLen, Pages: pages}
}

// IsFresh reports whether every captured page version still equals the
// oracle's current value.
func (pv *PageVersions) IsFresh(meta BlockMeta) bool {
	for _, snap := range meta.Pages {
		if pv.versions[snap.Page] != snap.Version {
			return false
		}
	}
	return true
}
