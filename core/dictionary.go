package core

import (
	"slices"
	"sync"
)

// Dictionary is the self-description the host downloads with identify:
// version, constants, and every command and response with its id.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]interface{}
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cached        []byte
}

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]interface{}),
		commandReg:    cmdReg,
		version:       "noiser-0.1.0",
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant adds a constant to the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = value
	d.cached = nil
}

func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cached = nil
}

func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cached = nil
}

// BuildDictionary renders and caches the dictionary. Call it after every
// command is registered.
func (d *Dictionary) BuildDictionary() {
	// Fetch from the registry before taking our own lock
	commands, responses := d.commandReg.Entries()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = d.render(commands, responses)
	DebugPrintln("[DICT] built " + itoa(len(d.cached)) + " bytes")
}

// Generate returns the dictionary JSON, rendering it if not cached
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cached
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}

	commands, responses := d.commandReg.Entries()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.render(commands, responses)
}

// render writes JSON by hand to keep encoding/json out of the firmware.
// Caller holds the lock.
func (d *Dictionary) render(commands, responses []*Command) []byte {
	out := make([]byte, 0, 1024)
	out = append(out, `{"version":"`...)
	out = append(out, d.version...)
	out = append(out, `","build_versions":"`...)
	out = append(out, d.buildVersions...)
	out = append(out, `","config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	slices.Sort(names)
	for i, name := range names {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendQuoted(out, name)
		out = append(out, ':')
		out = appendQuoted(out, valueToString(d.constants[name]))
	}

	out = append(out, `},"commands":`...)
	out = appendCommandMap(out, commands)
	out = append(out, `,"responses":`...)
	out = appendCommandMap(out, responses)
	return append(out, '}')
}

func appendCommandMap(out []byte, cmds []*Command) []byte {
	out = append(out, '{')
	for i, c := range cmds {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendQuoted(out, c.Signature())
		out = append(out, ':')
		out = append(out, itoa(int(c.ID))...)
	}
	return append(out, '}')
}

// appendQuoted quotes s; names and formats never contain quotes or escapes
func appendQuoted(out []byte, s string) []byte {
	out = append(out, '"')
	out = append(out, s...)
	return append(out, '"')
}

// GetChunk returns a copy of up to count bytes starting at offset. Past the
// end it returns an empty chunk, which ends the host's download.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := min(offset+uint32(count), uint32(len(data)))
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
