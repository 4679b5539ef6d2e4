// Package testutil builds synthetic object files for tests that exercise
// discovery and symbol extraction without checked-in binaries.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

type Object struct {
	Functions []string
	Data      []string
	Other     []string
	Undefined []string
	// NoSymtab omits .symtab entirely.
	NoSymtab bool
}

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24

	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3

	sttNotype = 0
	sttObject = 1
	sttFunc   = 2
	stbGlobal = 1

	textIndex = 4
)

type strtab struct {
	buf bytes.Buffer
}

func newStrtab() *strtab {
	s := &strtab{}
	s.buf.WriteByte(0)
	return s
}

func (s *strtab) add(name string) uint32 {
	off := uint32(s.buf.Len())
	s.buf.WriteString(name)
	s.buf.WriteByte(0)
	return off
}

type sym struct {
	name  uint32
	info  uint8
	shndx uint16
}

// Bytes renders o as a little-endian ELF64 relocatable image with the
// sections [null, .symtab, .strtab, .shstrtab, .text].
func (o Object) Bytes() []byte {
	shstr := newStrtab()
	nSymtab := shstr.add(".symtab")
	nStrtab := shstr.add(".strtab")
	nShstrtab := shstr.add(".shstrtab")
	nText := shstr.add(".text")
	if o.NoSymtab {
		nSymtab = shstr.add(".note.empty")
	}

	str := newStrtab()
	syms := []sym{{}}
	add := func(names []string, typ uint8, shndx uint16) {
		for _, n := range names {
			syms = append(syms, sym{name: str.add(n), info: stbGlobal<<4 | typ, shndx: shndx})
		}
	}
	add(o.Functions, sttFunc, textIndex)
	add(o.Data, sttObject, textIndex)
	add(o.Other, sttNotype, textIndex)
	add(o.Undefined, sttNotype, 0)

	var symtab bytes.Buffer
	for _, s := range syms {
		_ = binary.Write(&symtab, binary.LittleEndian, s.name)
		symtab.WriteByte(s.info)
		symtab.WriteByte(0)
		_ = binary.Write(&symtab, binary.LittleEndian, s.shndx)
		_ = binary.Write(&symtab, binary.LittleEndian, uint64(0))
		_ = binary.Write(&symtab, binary.LittleEndian, uint64(0))
	}

	shstrOff := uint64(ehdrSize)
	strOff := shstrOff + uint64(shstr.buf.Len())
	symOff := align8(strOff + uint64(str.buf.Len()))
	shOff := align8(symOff + uint64(symtab.Len()))

	var img bytes.Buffer
	img.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	le := func(v interface{}) { _ = binary.Write(&img, binary.LittleEndian, v) }
	le(uint16(1))  // ET_REL
	le(uint16(62)) // EM_X86_64
	le(uint32(1))
	le(uint64(0))
	le(uint64(0))
	le(shOff)
	le(uint32(0))
	le(uint16(ehdrSize))
	le(uint16(0))
	le(uint16(0))
	le(uint16(shdrSize))
	le(uint16(5))
	le(uint16(3))

	img.Write(shstr.buf.Bytes())
	img.Write(str.buf.Bytes())
	pad(&img, symOff)
	img.Write(symtab.Bytes())
	pad(&img, shOff)

	section := func(name, typ uint32, off, size uint64, link uint32, align, entsize uint64) {
		le(name)
		le(typ)
		le(uint64(0))
		le(uint64(0))
		le(off)
		le(size)
		le(link)
		le(uint32(1))
		le(align)
		le(entsize)
	}
	section(0, 0, 0, 0, 0, 0, 0)
	if o.NoSymtab {
		section(nSymtab, shtProgbits, symOff, 0, 0, 1, 0)
	} else {
		section(nSymtab, shtSymtab, symOff, uint64(symtab.Len()), 2, 8, symSize)
	}
	section(nStrtab, shtStrtab, strOff, uint64(str.buf.Len()), 0, 1, 0)
	section(nShstrtab, shtStrtab, shstrOff, uint64(shstr.buf.Len()), 0, 1, 0)
	section(nText, shtProgbits, shstrOff, 0, 0, 1, 0)

	return img.Bytes()
}

// WriteObject writes o below root at rel (slash separated) and returns the
// absolute path.
func WriteObject(t testing.TB, root, rel string, o Object) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, o.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// WriteLines writes one entry per line, used for linkage symbol lists.
func WriteLines(t testing.TB, path string, lines ...string) string {
	t.Helper()
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func align8(v uint64) uint64 {
	return (v + 7) &^ 7
}

func pad(b *bytes.Buffer, to uint64) {
	for uint64(b.Len()) < to {
		b.WriteByte(0)
	}
}
