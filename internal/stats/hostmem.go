package stats

import (
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultHostMemory is assumed when the host's memory cannot be read.
const DefaultHostMemory uint64 = 8 * 1024 * 1024 * 1024

// HostMemory reports total host memory in bytes.
type HostMemory interface {
	Total() uint64
}

type hostMemory struct {
	once  sync.Once
	total uint64
	read  func() (uint64, error)
}

// NewHostMemory reads /proc/meminfo (or the platform equivalent) once, on
// first use.
func NewHostMemory() HostMemory {
	return &hostMemory{read: readVirtualMemory}
}

func (h *hostMemory) Total() uint64 {
	h.once.Do(func() {
		total, err := h.read()
		if err != nil || total == 0 {
			h.total = DefaultHostMemory
			return
		}
		h.total = total
	})
	return h.total
}

func readVirtualMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// FixedHostMemory always reports the same total.
type FixedHostMemory uint64

func (f FixedHostMemory) Total() uint64 {
	return uint64(f)
}
