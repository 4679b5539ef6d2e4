package order

import (
	"encoding/json"
	"os"

	"modgraph/internal/core/errors"
	"modgraph/internal/shared/util"
)

// Fixup is a symbol that more than one module provides. Select is left empty
// for a person to fill in; a filled Select pins the provider on the next run.
type Fixup struct {
	Symbol     string   `json:"symbol,omitempty"`
	Candidates []string `json:"candidates"`
	Select     string   `json:"select"`
}

// Profile is the persisted form of an Ordering: direct dependencies per
// module plus the provider ambiguities met along the way.
type Profile struct {
	Dependencies map[string][]string `json:"dependencies"`
	Fixups       []Fixup             `json:"fixups,omitempty"`
}

func NewProfile(o *Ordering) *Profile {
	p := &Profile{
		Dependencies: make(map[string][]string, len(o.Dependencies)),
		Fixups:       append([]Fixup(nil), o.Conflicts...),
	}
	for name, deps := range o.Dependencies {
		p.Dependencies[name] = append([]string{}, deps...)
	}
	return p
}

// Selections maps each fixed-up symbol to the provider chosen for it.
func (p *Profile) Selections() map[string]string {
	out := make(map[string]string)
	for _, f := range p.Fixups {
		if f.Symbol == "" || f.Select == "" {
			continue
		}
		out[f.Symbol] = f.Select
	}
	return out
}

func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "profile not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read profile"), errors.CtxPath, path)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeMalformedInput, "decode profile"), errors.CtxPath, path)
	}
	if p.Dependencies == nil {
		return nil, errors.AddContext(errors.New(errors.CodeMalformedInput, "profile has no dependencies"), errors.CtxPath, path)
	}
	return &p, nil
}

func (p *Profile) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode profile")
	}
	return append(data, '\n'), nil
}

func (p *Profile) Save(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return util.WriteFileWithDirs(path, data, 0o644)
}

// Verify checks that every forward edge of o is recorded in p. Edges into the
// linkage module always pass.
func Verify(o *Ordering, p *Profile) error {
	for _, name := range o.Sequence {
		for _, dep := range o.Dependencies[name] {
			if dep == o.Linkage {
				continue
			}
			if contains(p.Dependencies[name], dep) {
				continue
			}
			err := errors.Newf(errors.CodeValidationError, "no dependency %s -> %s in profile", name, dep)
			err = errors.AddContext(err, errors.CtxFrom, name)
			return errors.AddContext(err, errors.CtxTo, dep)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
