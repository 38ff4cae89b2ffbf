package camera

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// attrLine matches KEY=="value" and ATTR{name}=="value" lines of
// `udevadm info --attribute-walk`.
var attrLine = regexp.MustCompile(`^\s*([A-Z]+(?:\{[^}]+\})?)=="(.*)"\s*$`)

// walkBlock is one "looking at [parent] device" section.
type walkBlock map[string]string

// ParseAttributeWalk extracts the Identity from the output of
// `udevadm info --attribute-walk --name=<device>`.
//
// The index comes from ATTR{index} of the device itself. Kernels comes from
// the first parent whose SUBSYSTEMS is "usb", which is the USB interface
// the video node hangs off.
func ParseAttributeWalk(output string) (Identity, error) {
	blocks := splitWalk(output)
	if len(blocks) == 0 {
		return Identity{}, fmt.Errorf("%w: empty attribute walk", ErrIdentityUnavailable)
	}

	rawIndex, ok := blocks[0]["ATTR{index}"]
	if !ok {
		return Identity{}, fmt.Errorf("%w: no ATTR{index}", ErrIdentityUnavailable)
	}
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad ATTR{index} %q", ErrIdentityUnavailable, rawIndex)
	}

	for _, b := range blocks[1:] {
		if b["SUBSYSTEMS"] == "usb" && b["KERNELS"] != "" {
			return Identity{Kernels: b["KERNELS"], Index: index}, nil
		}
	}

	return Identity{}, fmt.Errorf("%w: no usb parent", ErrIdentityUnavailable)
}

func splitWalk(output string) []walkBlock {
	var blocks []walkBlock
	var cur walkBlock

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "looking at") {
			cur = walkBlock{}
			blocks = append(blocks, cur)
			continue
		}
		if cur == nil {
			continue
		}
		m := attrLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, seen := cur[m[1]]; !seen {
			cur[m[1]] = m[2]
		}
	}
	return blocks
}
