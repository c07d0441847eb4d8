// Package schemas holds the decode recipes for every supported health packet
// and the registry that maps core packet names to them.
package schemas

import (
	"sort"
	"strings"

	"github.com/netrasat/groundcore/pkg/decoder"
)

// rawTopicPrefix is the leading part of a raw telemetry packet name:
// RAW__TLM__<TARGET>__<CORE>. Lookup keys are the core part.
const rawTopicPrefix = "RAW__TLM__"

var registry = map[string]*decoder.Schema{}

func register(s *decoder.Schema) {
	registry[s.Name] = s
}

// CoreName strips the RAW__TLM__<TARGET>__ prefix from a packet name. Names
// without the prefix are returned unchanged.
func CoreName(packet string) string {
	rest, ok := strings.CutPrefix(packet, rawTopicPrefix)
	if !ok {
		return packet
	}
	if i := strings.Index(rest, "__"); i >= 0 {
		return rest[i+2:]
	}
	return packet
}

// Lookup returns the schema registered for a core packet name.
func Lookup(core string) (*decoder.Schema, bool) {
	s, ok := registry[core]
	return s, ok
}

// Names returns the registered core packet names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Health packets share one of two header framings. Both carry the submodule,
// queue, and instance count; they differ in where the fixed TM header ends.

// headerAt26 places the submodule byte at payload offset 26; segment data
// follows the count directly.
func headerAt26() decoder.Header {
	return decoder.Header{
		SkipBytes: 26,
		Fields: []decoder.Field{
			{Name: "Submodule_ID", Type: decoder.U8},
			{Name: "Queue_ID", Type: decoder.U8},
			{Name: "Number_of_Instances", Type: decoder.U16},
		},
	}
}

// headerAt25 places the submodule byte at offset 25 with one reserved byte
// between the count and the first segment.
func headerAt25() decoder.Header {
	return decoder.Header{
		SkipBytes: 25,
		Fields: []decoder.Field{
			{Name: "Submodule_ID", Type: decoder.U8},
			{Name: "Queue_ID", Type: decoder.U8},
			{Name: "Number_of_Instances", Type: decoder.U16},
			{Type: decoder.Bytes, Size: 1},
		},
	}
}

// headerAt25Packed is headerAt25 without the reserved byte; segment data
// starts right after the count.
func headerAt25Packed() decoder.Header {
	return decoder.Header{
		SkipBytes: 25,
		Fields: []decoder.Field{
			{Name: "Submodule_ID", Type: decoder.U8},
			{Name: "Queue_ID", Type: decoder.U8},
			{Name: "Number_of_Instances", Type: decoder.U16},
		},
	}
}
