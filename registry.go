package imu

import (
	"fmt"
	"sort"
)

// MaxNameLen bounds the display name stored with a registry entry so status
// output keeps a fixed column width.
const MaxNameLen = 10

type registration struct {
	name   string
	driver Driver
}

// One registry per category. Entries are added from driver package init
// functions and never mutated afterwards, so lookups need no locking.
var registries [numCategories]map[string]registration

// Register records a chip driver under chip for the given category. It is
// intended to be called from a driver package's init function, the way
// database/sql drivers register themselves. Adding an entry never changes the
// behavior of any existing entry.
//
// Register panics on a duplicate chip identifier, a nil driver, an invalid
// category or a display name longer than MaxNameLen.
func Register(cat Category, chip, name string, driver Driver) {
	if cat < 0 || cat >= numCategories {
		panic(fmt.Sprintf("imu: Register %q: invalid category %d", chip, cat))
	}
	if driver == nil {
		panic(fmt.Sprintf("imu: Register %q: nil driver", chip))
	}
	if name == "" || len(name) > MaxNameLen {
		panic(fmt.Sprintf("imu: Register %q: bad display name %q", chip, name))
	}
	if registries[cat] == nil {
		registries[cat] = make(map[string]registration)
	}
	if _, dup := registries[cat][chip]; dup {
		panic(fmt.Sprintf("imu: Register called twice for %s chip %q", cat, chip))
	}
	registries[cat][chip] = registration{name: name, driver: driver}
}

// Chips returns the sorted chip identifiers registered for cat.
func Chips(cat Category) []string {
	if cat < 0 || cat >= numCategories {
		return nil
	}
	chips := make([]string, 0, len(registries[cat]))
	for chip := range registries[cat] {
		chips = append(chips, chip)
	}
	sort.Strings(chips)
	return chips
}

func lookup(cat Category, chip string) (registration, bool) {
	if cat < 0 || cat >= numCategories {
		return registration{}, false
	}
	r, ok := registries[cat][chip]
	return r, ok
}
