//go:build linux || darwin

package dashboard

import "syscall"

func diskUsagePercent(path string) (int, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	total := uint64(st.Blocks) * uint64(st.Bsize)
	if total == 0 {
		return 0, nil
	}
	free := uint64(st.Bavail) * uint64(st.Bsize)
	return int((total - free) * 100 / total), nil
}
