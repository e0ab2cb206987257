/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package nodes

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// hostDerivedCapacity reports this host's cpu/memory/ephemeral-storage
// for the Node this process self-registers (spec §4.C: "self-registered
// on start with host-derived capacity"). cpu and pod count come from the
// Go runtime; memory from /proc/meminfo where available (Linux); disk
// from a statfs of storeRoot. None of these require a third-party
// library: they are one-shot syscalls/file reads, not an ongoing
// concern any pack dependency models.
func hostDerivedCapacity(storeRoot string) (cpuMilli int64, memBytes int64, ephemeralBytes int64) {
	cpuMilli = int64(runtime.NumCPU()) * 1000
	memBytes = readMemTotal()
	ephemeralBytes = readDiskFree(storeRoot)
	return
}

func readMemTotal() int64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb * 1024
	}
	return 0
}

func readDiskFree(path string) int64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0
	}
	return int64(stat.Bavail) * int64(stat.Bsize)
}
