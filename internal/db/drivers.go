package db

import "slices"

// registered holds the driver names linked into this binary. Build-tagged
// files append to it in init.
var registered = []string{DefaultDriver}

// Drivers lists usable driver names.
func Drivers() []string {
	return slices.Clone(registered)
}

func driverAvailable(name string) bool {
	return slices.Contains(registered, name)
}
