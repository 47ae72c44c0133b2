// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"fmt"
	"strconv"
)

func parsePositiveInt(v string) (int, error) {
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if i < 1 {
		return 0, fmt.Errorf("value must be positive: %d", i)
	}
	return i, nil
}
