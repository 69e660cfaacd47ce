package mealsuggest

import (
	"fmt"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// Dump pretty-prints values with their call site, for ad-hoc debugging of
// sessions and suggestion batches.
func Dump(v ...any) {
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	spew.Dump(args...)
}
