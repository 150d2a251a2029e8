package accel

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/polaris-rt/pathtracer/accel/bvh"
	"github.com/polaris-rt/pathtracer/log"
	"github.com/shirou/gopsutil/mem"
)

var (
	ErrInsufficientMemory = errors.New("accel: insufficient memory for building acceleration structure")
	ErrRefitAfterMutation = errors.New("accel: instance set changed since last build; a full rebuild is required")
)

// Estimated memory requirements below this threshold skip the system
// memory query.
const memoryCheckThreshold = 64 << 20

var logger = log.New("accel")

// Report the amount of memory available to the process. Tests may replace it.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Estimate the memory needed for building a hierarchy over itemCount items
// of itemSize bytes each: the reordered item copy, the builder work list
// and a worst-case node count of 2n-1.
func estimateBuildMemory(itemCount int, itemSize uintptr) uint64 {
	var node bvh.Node
	var workItem bvh.BoundedVolume
	perItem := uint64(itemSize) + 2*uint64(unsafe.Sizeof(node)) + uint64(unsafe.Sizeof(workItem))
	return uint64(itemCount) * perItem
}

// Fail early if building a hierarchy would exhaust the available memory.
func checkMemory(itemCount int, itemSize uintptr) error {
	required := estimateBuildMemory(itemCount, itemSize)
	if required < memoryCheckThreshold {
		return nil
	}

	available, err := availableMemory()
	if err != nil {
		logger.Warningf("could not query available memory: %s", err.Error())
		return nil
	}

	if required > available {
		return fmt.Errorf("%w: %d items require ~%d MB; %d MB available", ErrInsufficientMemory, itemCount, required>>20, available>>20)
	}
	return nil
}
