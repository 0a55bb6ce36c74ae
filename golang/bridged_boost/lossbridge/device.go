package lossbridge

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

//Device executes CUDA zone kernels. Launch runs kernel once for every block
//in [0, blocks) and returns after all of them finished.
type Device interface {
	Name() string
	Launch(blocks int, kernel func(block int)) error
}

var (
	deviceMu sync.RWMutex
	device   Device = NewEmulatedDevice(runtime.NumCPU())
)

//RegisterDevice installs the device the CUDA zone runs on. Passing nil makes
//the zone unavailable.
func RegisterDevice(d Device) {
	deviceMu.Lock()
	device = d
	deviceMu.Unlock()
}

//CurrentDevice reports the name of the registered device, if any.
func CurrentDevice() (string, bool) {
	d := currentDevice()
	if d == nil {
		return "", false
	}
	return d.Name(), true
}

func currentDevice() Device {
	deviceMu.RLock()
	d := device
	deviceMu.RUnlock()
	return d
}

//EmulatedDevice runs blocks on host goroutines.
type EmulatedDevice struct {
	threadsNum int
}

//NewEmulatedDevice creates a device with threadsNum workers per launch.
func NewEmulatedDevice(threadsNum int) *EmulatedDevice {
	if threadsNum < 1 {
		threadsNum = 1
	}
	return &EmulatedDevice{threadsNum: threadsNum}
}

func (d *EmulatedDevice) Name() string {
	return fmt.Sprintf("emulated(%d)", d.threadsNum)
}

type blockTask struct {
	kernel func(block int)
	block  int
	faults []interface{}
}

func (task *blockTask) Run() {
	defer func() {
		if r := recover(); r != nil {
			task.faults[task.block] = r
		}
	}()
	task.kernel(task.block)
}

//Launch runs every block and reports the first block that panicked.
func (d *EmulatedDevice) Launch(blocks int, kernel func(block int)) error {
	if blocks <= 0 {
		return nil
	}
	faults := make([]interface{}, blocks)
	if blocks == 1 || d.threadsNum == 1 {
		for block := 0; block < blocks; block++ {
			(&blockTask{kernel, block, faults}).Run()
		}
	} else {
		taskPool := NewPool(d.threadsNum)
		for block := 0; block < blocks; block++ {
			taskPool.AddTask(&blockTask{kernel, block, faults})
		}
		taskPool.Close()
		taskPool.WaitAll()
	}

	for block, fault := range faults {
		if fault != nil {
			return errors.Wrapf(ErrDeviceFault, "block %d: %v", block, fault)
		}
	}
	return nil
}
