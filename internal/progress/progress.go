// Package progress prints human-readable phase timing, the same style the
// gokrazy packer uses for its "Creating boot file system" / "[done] in
// 1.23s" banners, adapted here for update phases such as planning and
// writing the worklist.
package progress

import (
	"fmt"
	"strings"
	"time"
)

// Phase prints "[status]" immediately and returns a function that, when
// called, overwrites it with "[done] in Ns<fragment>".
func Phase(status string) (done func(fragment string)) {
	status = "[" + status + "]"
	fmt.Print(status)
	start := time.Now()
	return func(fragment string) {
		elapsed := time.Since(start)
		fmt.Printf("\r[done] in %.2fs%s"+strings.Repeat(" ", len(status))+"\n",
			elapsed.Seconds(), fragment)
	}
}
