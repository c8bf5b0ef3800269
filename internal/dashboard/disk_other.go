//go:build !linux && !darwin

package dashboard

import "errors"

func diskUsagePercent(string) (int, error) {
	return 0, errors.New("disk usage not supported on this platform")
}
