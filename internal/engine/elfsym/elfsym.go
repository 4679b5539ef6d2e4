// Package elfsym extracts the symbol table of a relocatable object or kernel
// module and classifies each entry as an import or an export.
package elfsym

import (
	"debug/elf"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"modgraph/internal/core/errors"
)

type Kind int

const (
	KindOther Kind = iota
	KindFunction
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindData:
		return "data"
	default:
		return "other"
	}
}

type Symbol struct {
	Name      string
	Kind      Kind
	Undefined bool
}

// Record is what discovery hands to the graph builder for one module.
type Record struct {
	Name    string
	Path    string
	Symbols []Symbol
}

// Read opens path and returns its symbol table. Name is left for the caller.
func Read(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, errors.AddContext(errors.Wrap(err, errors.CodeIO, "open module"), errors.CtxPath, path)
	}
	defer f.Close()

	syms, err := Parse(f)
	if err != nil {
		return Record{}, errors.AddContext(err, errors.CtxPath, path)
	}
	return Record{Path: path, Symbols: syms}, nil
}

// Parse decodes an ELF image (32 or 64 bit, either byte order).
func Parse(r io.ReaderAt) ([]Symbol, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedInput, "not a valid ELF object")
	}
	defer ef.Close()

	if ef.Section(".symtab") == nil {
		return nil, errors.New(errors.CodeMalformedInput, "missing .symtab section")
	}
	raw, err := ef.Symbols()
	if err != nil {
		if stderrors.Is(err, elf.ErrNoSymbols) {
			return nil, errors.New(errors.CodeMalformedInput, "empty .symtab section")
		}
		return nil, errors.Wrap(err, errors.CodeMalformedInput, "bad .symtab section")
	}

	out := make([]Symbol, 0, len(raw))
	for _, s := range raw {
		out = append(out, FromELF(s))
	}
	return out, nil
}

func FromELF(s elf.Symbol) Symbol {
	kind := KindOther
	switch elf.ST_TYPE(s.Info) {
	case elf.STT_FUNC:
		kind = KindFunction
	case elf.STT_OBJECT:
		kind = KindData
	}
	return Symbol{
		Name:      s.Name,
		Kind:      kind,
		Undefined: s.Section == elf.SHN_UNDEF,
	}
}

// Classify splits a record into the names it imports and the names it
// exports. Imports keep table order; blank names are dropped. Every defined
// function or data symbol counts as an export regardless of binding.
func Classify(rec Record) (undefined []string, exported []string) {
	for _, s := range rec.Symbols {
		if s.Undefined {
			name := strings.TrimSpace(s.Name)
			if name != "" {
				undefined = append(undefined, name)
			}
			continue
		}
		if s.Kind == KindFunction || s.Kind == KindData {
			exported = append(exported, s.Name)
		}
	}
	return undefined, exported
}
