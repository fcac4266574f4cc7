package typesystem

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders the interned payload of id, followed by the payloads of the
// types it references, for debugging and test failure messages.
func (in *Interner) Dump(id TypeID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %s\n", id, in.Format(id))
	in.walk(id, func(t TypeID, d TypeData) bool {
		fmt.Fprintf(&b, "%s: %s", t, dumpConfig.Sdump(d))
		return true
	})
	return b.String()
}
