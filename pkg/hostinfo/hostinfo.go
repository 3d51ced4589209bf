// Package hostinfo answers questions about the machine a run executes on:
// how many workers it can keep busy and which device a file lives on.
package hostinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
)

// MaxDefaultWorkers caps the worker count picked when none is configured.
const MaxDefaultWorkers = 8

// LogicalCPUs reports the number of logical CPUs, or 1 if it cannot be
// determined.
func LogicalCPUs() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// DefaultWorkers returns min(MaxDefaultWorkers, LogicalCPUs()).
func DefaultWorkers() int {
	n := LogicalCPUs()
	if n > MaxDefaultWorkers {
		return MaxDefaultWorkers
	}
	return n
}

// Target describes where a file is stored.
type Target struct {
	Path       string
	Device     string
	MountPoint string
	FreeBytes  uint64
	TotalBytes uint64
}

// DescribeTarget resolves the device, mount point and free space for path.
func DescribeTarget(path string) (Target, error) {
	mountPoint, device, err := GetDeviceAndMountPoint(path)
	if err != nil {
		return Target{}, err
	}
	usage, err := disk.Usage(mountPoint)
	if err != nil {
		return Target{}, fmt.Errorf("failed to read disk usage for %s: %w", mountPoint, err)
	}
	return Target{
		Path:       path,
		Device:     device,
		MountPoint: mountPoint,
		FreeBytes:  usage.Free,
		TotalBytes: usage.Total,
	}, nil
}

// GetDeviceAndMountPoint returns the mount point and device holding path.
func GetDeviceAndMountPoint(path string) (string, string, error) {
	partitions, err := disk.Partitions(true)
	if err != nil {
		return "", "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", "", fmt.Errorf("path does not exist: %s: %w", path, err)
	}

	best, ok := longestMount(absPath, partitions)
	if !ok {
		return "", "", fmt.Errorf("mount point not found for path: %s", path)
	}
	return best.Mountpoint, best.Device, nil
}

// longestMount picks the partition with the longest mount point that is
// absPath itself or one of its ancestors.
func longestMount(absPath string, partitions []disk.PartitionStat) (disk.PartitionStat, bool) {
	sep := string(os.PathSeparator)
	var best disk.PartitionStat
	for _, partition := range partitions {
		if partition.Mountpoint == "" || len(partition.Mountpoint) <= len(best.Mountpoint) {
			continue
		}
		root := strings.TrimSuffix(filepath.Clean(partition.Mountpoint), sep)
		if root == "" || absPath == root || strings.HasPrefix(absPath, root+sep) {
			best = partition
		}
	}
	return best, best.Mountpoint != ""
}
