package debuginfo

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/derekparker/trie"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/go-kmon/kmon/pkg/logflags"
)

// pcCacheSize bounds the resolution cache. Backtraces revisit the same
// return addresses constantly, the working set is tiny.
const pcCacheSize = 128

// LineEntry maps the start of one source line inside a function.
type LineEntry struct {
	Addr uint32 `yaml:"addr"`
	Line int    `yaml:"line"`
}

// Function is one function record of the debug map.
type Function struct {
	Name  string      `yaml:"name"`
	Entry uint32      `yaml:"entry"`
	Size  uint32      `yaml:"size"`
	File  string      `yaml:"file"`
	Line  int         `yaml:"line"`
	NArgs int         `yaml:"nargs"`
	Lines []LineEntry `yaml:"lines,omitempty"`
}

type mapFile struct {
	Functions []Function        `yaml:"functions"`
	Symbols   map[string]uint32 `yaml:"symbols"`
}

// Map is a Resolver backed by a YAML debug map file.
type Map struct {
	funcs []Function // sorted by entry
	syms  map[string]uint32
	names *trie.Trie
	cache *lru.Cache
	log   *logrus.Entry
}

var _ Resolver = (*Map)(nil)

// LoadMap reads and indexes a debug map file.
func LoadMap(path string) (*Map, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read debug map: %v", err)
	}
	var mf mapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("could not parse debug map %s: %v", path, err)
	}
	return NewMap(mf.Functions, mf.Symbols), nil
}

// NewMap indexes the given function records and symbols.
func NewMap(funcs []Function, syms map[string]uint32) *Map {
	m := &Map{
		funcs: make([]Function, len(funcs)),
		syms:  syms,
		names: trie.New(),
		log:   logflags.DebugInfoLogger(),
	}
	copy(m.funcs, funcs)
	sort.Slice(m.funcs, func(i, j int) bool { return m.funcs[i].Entry < m.funcs[j].Entry })
	for i := range m.funcs {
		lines := m.funcs[i].Lines
		sort.Slice(lines, func(a, b int) bool { return lines[a].Addr < lines[b].Addr })
		m.names.Add(m.funcs[i].Name, i)
	}
	m.cache, _ = lru.New(pcCacheSize)
	m.log.Debugf("indexed %d functions, %d symbols", len(m.funcs), len(m.syms))
	return m
}

func (m *Map) PCToLocation(pc uint32) (Location, bool) {
	if v, ok := m.cache.Get(pc); ok {
		loc := v.(Location)
		return loc, loc.Fn != Unknown
	}

	loc, ok := m.resolve(pc)
	m.cache.Add(pc, loc)
	return loc, ok
}

func (m *Map) resolve(pc uint32) (Location, bool) {
	// First function with entry > pc; the candidate is the one before it.
	i := sort.Search(len(m.funcs), func(i int) bool { return m.funcs[i].Entry > pc })
	if i == 0 {
		return UnknownLocation(pc), false
	}
	fn := &m.funcs[i-1]
	if fn.Size != 0 && pc >= fn.Entry+fn.Size {
		m.log.Debugf("pc %#08x past end of %s", pc, fn.Name)
		return UnknownLocation(pc), false
	}

	loc := Location{
		File:    fn.File,
		Line:    fn.Line,
		Fn:      fn.Name,
		FnEntry: fn.Entry,
		NArgs:   fn.NArgs,
	}
	for _, le := range fn.Lines {
		if le.Addr <= pc {
			loc.Line = le.Line
		}
	}
	return loc, true
}

func (m *Map) Functions(prefix string) []string {
	var names []string
	if prefix == "" {
		names = m.names.Keys()
	} else {
		names = m.names.PrefixSearch(prefix)
	}
	sort.Strings(names)
	return names
}

func (m *Map) Symbol(name string) (uint32, bool) {
	addr, ok := m.syms[name]
	return addr, ok
}
