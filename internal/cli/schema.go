package cli

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/vburojevic/espdecode/internal/domain"
)

// SchemaCmd outputs JSON Schema for the ndjson records
type SchemaCmd struct {
	Type []string `short:"T" help:"Record types to include (crash_header,pc_fault,panic_reason,backtrace,boot_loop,ready,summary,warning,error). Default: all"`
}

var schemaOrder = []string{
	domain.TypeCrashHeader,
	domain.TypeProgramCounter,
	domain.TypePanicReason,
	domain.TypeBacktrace,
	domain.TypeBootLoopDetected,
	"ready",
	"summary",
	"warning",
	"error",
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	schemas := map[string]interface{}{
		domain.TypeCrashHeader: eventSchema(domain.TypeCrashHeader, "Crash Header",
			"The device reported an ELF SHA256 that does not match the local ELF",
			map[string]interface{}{
				"mismatch": prop("boolean", "Always true; matching headers are not reported"),
				"reported": prop("string", "Fingerprint printed by the device (usually truncated)"),
				"local":    prop("string", "SHA256 of the local ELF"),
			}, "mismatch", "reported", "local"),
		domain.TypeProgramCounter: eventSchema(domain.TypeProgramCounter, "Program Counter Fault",
			"Decoded location of the faulting program counter",
			map[string]interface{}{
				"address":  prop("string", "Program counter as printed by the device"),
				"location": locationSchema(),
			}, "address", "location"),
		domain.TypePanicReason: eventSchema(domain.TypePanicReason, "Panic Reason",
			"Reason of a Guru Meditation Error",
			map[string]interface{}{
				"reason": prop("string", "Text between the parentheses, e.g. LoadProhibited"),
			}, "reason"),
		domain.TypeBacktrace: eventSchema(domain.TypeBacktrace, "Backtrace",
			"Decoded backtrace; frames that could not be resolved are omitted",
			map[string]interface{}{
				"addresses": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Addresses in device order",
				},
				"frames": map[string]interface{}{
					"type":        "array",
					"items":       locationSchema(),
					"description": "Resolved frames in device order",
				},
			}, "addresses", "frames"),
		domain.TypeBootLoopDetected: eventSchema(domain.TypeBootLoopDetected, "Boot Loop",
			"The device restarted; further output of the session is suppressed",
			map[string]interface{}{
				"count": prop("integer", "Restarts seen in this session"),
			}, "count"),
		"ready":   readySchema(),
		"summary": summarySchema(),
		"warning": map[string]interface{}{
			"type":        "object",
			"title":       "Warning",
			"description": "Non-fatal problem, e.g. addr2line not found",
			"properties": map[string]interface{}{
				"type":          constProp("warning"),
				"schemaVersion": prop("integer", "Schema version of the record"),
				"message":       prop("string", "Warning text"),
			},
			"required": []string{"type", "message"},
		},
		"error": errorSchema(),
	}

	typesToOutput := lo.Map(c.Type, func(t string, _ int) string {
		return strings.ToLower(strings.TrimSpace(t))
	})
	if len(typesToOutput) == 0 {
		typesToOutput = schemaOrder
	}

	defs := map[string]interface{}{}
	for _, t := range typesToOutput {
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "espdecode Output Schemas",
		"description": "JSON Schema definitions for all espdecode NDJSON records",
		"definitions": defs,
	})
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func constProp(value string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "const": value}
}

func locationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"dir":  prop("string", "Directory with resolver placeholders stripped"),
			"file": prop("string", "Source file name"),
			"line": prop("string", "Line number text; may be a placeholder such as ?"),
		},
		"required": []string{"dir", "file", "line"},
	}
}

// eventSchema adds the envelope fields shared by every decoded event.
func eventSchema(typ, title, description string, props map[string]interface{}, required ...string) map[string]interface{} {
	props["type"] = constProp(typ)
	props["schemaVersion"] = prop("integer", "Schema version of the record")
	props["session_id"] = prop("string", "Session the event belongs to")
	props["timestamp"] = map[string]interface{}{
		"type":        "string",
		"format":      "date-time",
		"description": "When the event was decoded",
	}
	return map[string]interface{}{
		"type":        "object",
		"title":       title,
		"description": description,
		"properties":  props,
		"required":    append([]string{"type", "schemaVersion", "timestamp"}, required...),
	}
}

func readySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Ready",
		"description": "Session start with the ELF and resolver in use",
		"properties": map[string]interface{}{
			"type":       constProp("ready"),
			"session_id": prop("string", "Session id"),
			"mode":       map[string]interface{}{"type": "string", "enum": []string{"monitor", "decode"}},
			"elf":        prop("string", "Path of the ELF used for decoding"),
			"sha256":     prop("string", "SHA256 of the ELF"),
			"tools":      prop("string", "Toolchain root"),
			"resolver":   prop("string", "addr2line binary"),
			"port":       prop("string", "Serial port (monitor only)"),
			"baud":       prop("integer", "Baud rate (monitor only)"),
			"input":      prop("string", "Input source (decode only)"),
		},
		"required": []string{"type", "session_id", "mode", "elf", "sha256"},
	}
}

func summarySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Summary",
		"description": "End of a decode run",
		"properties": map[string]interface{}{
			"type":      constProp("summary"),
			"lines":     prop("integer", "Lines classified"),
			"events":    prop("integer", "Events emitted"),
			"restarts":  prop("integer", "Crash headers seen"),
			"boot_loop": prop("boolean", "True if output was suppressed by boot loop detection"),
		},
		"required": []string{"type", "lines", "events"},
	}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Error",
		"description": "Fatal error from espdecode",
		"properties": map[string]interface{}{
			"type": constProp("error"),
			"code": map[string]interface{}{
				"type":        "string",
				"description": "Error code",
				"enum": []string{
					codeELFNotFound,
					codeNoPort,
					codePortOpenFailed,
					codeDeviceRead,
					codeInputReadFailed,
					codeInvalidFlags,
					codeOutputFailed,
				},
			},
			"message": prop("string", "Human-readable error description"),
			"hint":    prop("string", "How to fix it"),
		},
		"required": []string{"type", "code", "message"},
	}
}
