package boot

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/ir-emitter/internal/camera"
)

// RenderRules returns the udev rule file content for ids: one line per
// distinct identity, sorted, each running "<executable> run" when the
// device is added or changes.
func RenderRules(ids []camera.Identity, executable string) []byte {
	unique := make(map[camera.Identity]struct{}, len(ids))
	sorted := make([]camera.Identity, 0, len(ids))
	for _, id := range ids {
		if _, dup := unique[id]; dup {
			continue
		}
		unique[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	var buf bytes.Buffer
	for _, id := range sorted {
		fmt.Fprintf(&buf, "ACTION==\"add|change\", KERNELS==\"%s\", ATTR{index}==\"%d\", RUN+=\"%s run\"\n",
			id.Kernels, id.Index, executable)
	}
	return buf.Bytes()
}

// countRules returns the number of rule lines in content.
func countRules(content []byte) int {
	n := 0
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			n++
		}
	}
	return n
}

// validateRuleValue rejects values that would break out of a quoted udev
// rule field.
func validateRuleValue(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, field)
	}
	if strings.ContainsAny(value, "\"\n\r\\") {
		return fmt.Errorf("%w: %s contains a quote, backslash or newline", ErrInvalidConfig, field)
	}
	return nil
}
