// Package inventory loads the host and command lists an audit run works
// from, and maps equipment types to their command files.
package inventory

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadLines reads a plain text file, one entry per line, skipping blank
// lines and preserving order.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadHosts reads the host list. Hosts are opaque identifiers; the only
// validation is that the list is not empty.
func LoadHosts(path string) ([]string, error) {
	hosts, err := LoadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read host list: %w", err)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("host list %s is empty", path)
	}
	return hosts, nil
}

// LoadCommands reads the ordered command list. The same list must be used
// for both phases of an audit so the diffs align.
func LoadCommands(path string) ([]string, error) {
	commands, err := LoadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read command list: %w", err)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("command list %s is empty", path)
	}
	return commands, nil
}

// deviceFiles maps supported equipment types to their command files.
var deviceFiles = map[string]string{
	"asr9k":          "C-ASR9K.txt",
	"crs":            "C-CRS.txt",
	"cat2960":        "CC_2960.txt",
	"cat3850":        "CC_3850.txt",
	"cat4500-x":      "CC_4500-X.txt",
	"cat49xx":        "CC_49xx.txt",
	"cat65xx-76xx":   "CC_65xx-76xx.txt",
	"nexus5xxx":      "C-Nexus 5xxx.txt",
	"nexus7xxx":      "C-Nexus 7xxx.txt",
	"nexus93xx-95xx": "C-Nexus 93xx-95xx.txt",
}

// DeviceTypes lists supported equipment type names in stable order.
func DeviceTypes() []string {
	names := make([]string, 0, len(deviceFiles))
	for name := range deviceFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandFileFor resolves an equipment type to its command file name.
func CommandFileFor(device string) (string, error) {
	file, ok := deviceFiles[strings.ToLower(strings.TrimSpace(device))]
	if !ok {
		return "", fmt.Errorf("unknown device type %q (known: %s)", device, strings.Join(DeviceTypes(), ", "))
	}
	return file, nil
}
