// Package builtin provides NeoSec's default adapter registrations for a
// handful of common security tools. Each adapter is a pure BuildCommand/
// ParseOutput pair, grounded on the teacher's ClaudeAdapter shape.
package builtin

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/neosec/neosec/internal/adapter"
)

// Nmap wraps the nmap network scanner, emitting greppable output
// (-oG -) and parsing host/port observations from it.
type Nmap struct {
	BinaryPath string
	schema     *adapter.OptionSchema
}

// NewNmap constructs the nmap adapter with its option schema compiled.
func NewNmap() Nmap {
	schema, err := adapter.NewOptionSchema("nmap", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"ports": map[string]any{"type": "string"},
			"speed": map[string]any{"type": "integer", "minimum": 0, "maximum": 5},
			"udp":   map[string]any{"type": "boolean"},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("builtin: compile nmap schema: %v", err))
	}
	return Nmap{schema: schema}
}

func (n Nmap) Name() string               { return "nmap" }
func (n Nmap) Category() adapter.Category { return adapter.CategoryScanner }

func (n Nmap) Dependencies() []adapter.BinaryDep {
	return []adapter.BinaryDep{{Name: "nmap", Path: n.BinaryPath}}
}

func (n Nmap) Schema() *adapter.OptionSchema { return n.schema }

func (n Nmap) BuildCommand(target adapter.Target, opts adapter.OptionMap) ([]string, error) {
	args := []string{"-oG", "-"}

	if v, ok := opts["ports"]; ok {
		if v.Kind != adapter.KindString {
			return nil, &adapter.ErrUnknownOption{Adapter: n.Name(), Option: "ports"}
		}
		args = append(args, "-p", v.Str)
	}
	if v, ok := opts["speed"]; ok && v.Kind == adapter.KindInt {
		args = append(args, "-T"+strconv.Itoa(v.Int))
	}
	if v, ok := opts["udp"]; ok && v.Kind == adapter.KindBool && v.Bool {
		args = append(args, "-sU")
	}

	args = append(args, string(target))
	return args, nil
}

// ParseOutput parses nmap's greppable (-oG) format: one "Host: <ip> ()
// Ports: <n>/<state>/<proto>//<service>///, ..." line per scanned host.
func (n Nmap) ParseOutput(stdout, stderr []byte, hint adapter.OutputFormat) (adapter.ParsedResult, error) {
	var result adapter.ParsedResult
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Host: ") {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		hostField := strings.TrimPrefix(fields[0], "Host: ")
		addr := strings.Fields(hostField)[0]

		host := adapter.ParsedHost{Address: addr}
		if len(fields) == 2 && strings.HasPrefix(fields[1], "Ports: ") {
			portsField := strings.TrimPrefix(fields[1], "Ports: ")
			for _, p := range strings.Split(portsField, ", ") {
				parts := strings.Split(p, "/")
				if len(parts) < 5 {
					continue
				}
				num, err := strconv.Atoi(parts[0])
				if err != nil {
					continue
				}
				host.Ports = append(host.Ports, adapter.ParsedPort{
					Number:   uint16(num),
					State:    parts[1],
					Protocol: parts[2],
					Service:  parts[4],
				})
			}
		}
		result.Hosts = append(result.Hosts, host)
	}
	return result, scanner.Err()
}
