package gomon

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ObserveRuntime records a snapshot of Go runtime statistics as
// monitors on the given factory.
func ObserveRuntime(f *Factory) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	f.Add("runtime.memory.alloc", UnitsBytes, float64(ms.Alloc))
	f.Add("runtime.memory.sys", UnitsBytes, float64(ms.Sys))
	f.Add("runtime.memory.heap_alloc", UnitsBytes, float64(ms.HeapAlloc))
	f.Add("runtime.memory.heap_inuse", UnitsBytes, float64(ms.HeapInuse))
	f.Add("runtime.memory.stack_inuse", UnitsBytes, float64(ms.StackInuse))
	f.Add("runtime.goroutines", "goroutines", float64(runtime.NumGoroutine()))
	f.Add("runtime.gc.runs", "runs", float64(ms.NumGC))
	f.Add("runtime.gc.pause", UnitsMilliseconds, float64(ms.PauseTotalNs)/1e6)

	if rss := processRSS(); rss > 0 {
		f.Add("runtime.memory.rss", UnitsBytes, float64(rss))
	}
	if fds := openFileDescriptors(); fds > 0 {
		f.Add("runtime.file_descriptors", "fds", float64(fds))
	}
}

// StartRuntimeObserver records runtime statistics on f every interval
// until the returned stop function is called.
func StartRuntimeObserver(f *Factory, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ObserveRuntime(f)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// processRSS returns the RSS (Resident Set Size) memory usage in bytes.
func processRSS() uint64 {
	// Read from /proc/self/status on Linux
	if data, err := os.ReadFile("/proc/self/status"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "VmRSS:") {
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
						return kb * 1024 // KB to bytes
					}
				}
			}
		}
	}
	return 0
}

// openFileDescriptors returns the number of open file descriptors.
func openFileDescriptors() uint64 {
	// Count entries in /proc/self/fd on Linux
	if entries, err := os.ReadDir("/proc/self/fd"); err == nil {
		return uint64(len(entries))
	}
	return 0
}
