package target

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/go-kmon/kmon/pkg/logflags"
)

// Snapshot is a machine state captured outside the monitor: a raw memory
// image plus the machine file describing registers and paging root. It is
// what `kmon core` attaches to.
type Snapshot struct {
	Mem *SliceMemory
	// Ctx is the trapped execution context, nil if the machine file does
	// not carry one.
	Ctx *Context
	// PageDir is the physical address of the page directory (CR3).
	PageDir uint32
}

type machineFile struct {
	// Base is the address the memory image is mapped at.
	Base uint32 `yaml:"base"`
	// Cr3 is the page directory root.
	Cr3 uint32 `yaml:"cr3"`
	// Trapframe is the saved context, absent for a machine halted outside
	// a trap.
	Trapframe *Context `yaml:"trapframe,omitempty"`
}

// OpenSnapshot loads the memory image and the YAML machine file.
func OpenSnapshot(imagePath, machinePath string) (*Snapshot, error) {
	log := logflags.TargetLogger()

	data, err := ioutil.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("could not read memory image: %v", err)
	}

	mdata, err := ioutil.ReadFile(machinePath)
	if err != nil {
		return nil, fmt.Errorf("could not read machine file: %v", err)
	}
	var mf machineFile
	if err := yaml.UnmarshalStrict(mdata, &mf); err != nil {
		return nil, fmt.Errorf("could not parse machine file %s: %v", machinePath, err)
	}

	log.Debugf("loaded %d byte image at %#08x, cr3 %#08x", len(data), mf.Base, mf.Cr3)
	if mf.Trapframe != nil {
		log.Debugf("trapped at eip %#08x (%s)", mf.Trapframe.Eip, TrapName(mf.Trapframe.Trapno))
	}

	return &Snapshot{
		Mem:     NewSliceMemory(data, mf.Base),
		Ctx:     mf.Trapframe,
		PageDir: mf.Cr3,
	}, nil
}
