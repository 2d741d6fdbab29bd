package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/eq-assets/pkg/wld"
)

// Selector addresses an asset inside an archive stack:
//
//	<container>#<Kind>[<Name>]/<SubPath>
//
// The kind "Wld" selects a whole inner world file by name; any
// fragment kind (Mesh, Material, Actor, ...) selects one named
// fragment out of the container's world file. The optional sub-path
// narrows a world selection down to one named fragment.
type Selector struct {
	Container string
	Kind      string
	Name      string
	SubPath   string
}

// ErrBadSelector reports a selector string that does not parse.
var ErrBadSelector = errors.New("assets: malformed selector")

// ParseSelector splits a selector string into its parts.
func ParseSelector(s string) (Selector, error) {
	container, rest, ok := strings.Cut(s, "#")
	if !ok || container == "" || rest == "" {
		return Selector{}, fmt.Errorf("%w: %q", ErrBadSelector, s)
	}

	var sel Selector
	sel.Container = container

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		sel.SubPath = rest[i+1:]
		rest = rest[:i]
	}

	open := strings.IndexByte(rest, '[')
	if open < 0 {
		// Bare kind with no name, e.g. "#Mesh".
		sel.Kind = rest
	} else {
		if !strings.HasSuffix(rest, "]") {
			return Selector{}, fmt.Errorf("%w: %q", ErrBadSelector, s)
		}
		sel.Kind = rest[:open]
		sel.Name = rest[open+1 : len(rest)-1]
	}
	if sel.Kind == "" {
		return Selector{}, fmt.Errorf("%w: %q", ErrBadSelector, s)
	}
	return sel, nil
}

// QueryResult is what a selector resolves to. Fragment is nil when
// the selector names a whole world file without a sub-path.
type QueryResult struct {
	World    *wld.World
	Faults   []wld.Fault
	Fragment *wld.Fragment
}

// Query resolves a selector string against the added archives.
func (m *Manager) Query(selector string) (*QueryResult, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}

	arch, ok := m.archiveByName(sel.Container)
	if !ok {
		return nil, fmt.Errorf("assets: archive %s not loaded", sel.Container)
	}

	if sel.Kind == "Wld" {
		world, faults, err := m.worldFrom(arch, sel.Name)
		if err != nil {
			return nil, err
		}
		res := &QueryResult{World: world, Faults: faults}
		if sel.SubPath != "" {
			frag := findByName(world, sel.SubPath)
			if frag == nil {
				return nil, fmt.Errorf("assets: no fragment named %q in %s", sel.SubPath, sel.Name)
			}
			res.Fragment = frag
		}
		return res, nil
	}

	kind, ok := wld.KindByName(sel.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadSelector, sel.Kind)
	}
	if sel.SubPath != "" {
		return nil, fmt.Errorf("%w: sub-path only applies to Wld selectors", ErrBadSelector)
	}

	world, faults, err := m.worldFrom(arch, primaryWldName(sel.Container, arch.archive.List()))
	if err != nil {
		return nil, err
	}
	frag, ok := world.GetByName(kind, sel.Name)
	if !ok {
		return nil, fmt.Errorf("assets: no %s named %q in %s", sel.Kind, sel.Name, sel.Container)
	}
	return &QueryResult{World: world, Faults: faults, Fragment: frag}, nil
}

// worldFrom decodes a named wld file of one archive, through the
// shared world cache. Cache entries are keyed per archive: different
// archives carry distinct worlds under the same inner file name.
func (m *Manager) worldFrom(arch namedArchive, name string) (*wld.World, []wld.Fault, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("assets: no world file selected")
	}

	key := worldKey{archive: arch.name, file: strings.ToLower(name)}
	m.mu.RLock()
	entry, ok := m.worlds[key]
	m.mu.RUnlock()
	if ok {
		return entry.world, entry.faults, nil
	}

	data, err := arch.archive.Read(name)
	if err != nil {
		return nil, nil, fmt.Errorf("assets: reading %s: %w", name, err)
	}
	world, faults, err := wld.Load(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	m.mu.Lock()
	if prior, ok := m.worlds[key]; ok {
		m.mu.Unlock()
		return prior.world, prior.faults, nil
	}
	m.worlds[key] = &worldEntry{world: world, faults: faults}
	m.mu.Unlock()
	return world, faults, nil
}

// primaryWldName picks the world file a bare fragment selector
// resolves against: the one sharing the archive's stem, or the first
// .wld in directory order.
func primaryWldName(container string, files []string) string {
	stem := strings.ToLower(strings.TrimSuffix(container, ".s3d"))
	first := ""
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f), ".wld") {
			continue
		}
		if strings.ToLower(strings.TrimSuffix(f, ".wld")) == stem {
			return f
		}
		if first == "" {
			first = f
		}
	}
	return first
}

// findByName scans the fragment table for a name, any kind.
func findByName(w *wld.World, name string) *wld.Fragment {
	for i := 1; i <= w.FragmentCount(); i++ {
		if f := w.At(i); f.Name == name {
			return f
		}
	}
	return nil
}
