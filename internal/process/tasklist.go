package process

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// tasklistHasPID reports whether `tasklist /NH /FO CSV` output lists pid.
// Only the PID column is inspected, so the localized "no tasks" notice that
// tasklist prints in place of rows never matches.
func tasklistHasPID(out string, pid int) bool {
	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	want := strconv.Itoa(pid)
	for {
		rec, err := r.Read()
		if err != nil {
			return false
		}
		if len(rec) < 2 {
			continue
		}
		if strings.TrimSpace(rec[1]) == want {
			return true
		}
	}
}
