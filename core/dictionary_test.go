package core

import (
	"bytes"
	"encoding/json"
	"testing"
)

type dictJSON struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
}

func TestDictionaryJSON(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)
	dict.AddConstant("TEST_CONST", uint32(42))
	dict.AddConstant("NAME", "hello")
	reg.Register("resp", "v=%u", nil)
	reg.Register("cmd", "arg=%c", func(*[]byte) error { return nil })
	reg.Register("plain", "", func(*[]byte) error { return nil })

	var parsed dictJSON
	if err := json.Unmarshal(dict.Generate(), &parsed); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v\n%s", err, dict.Generate())
	}
	if parsed.Version != "noiser-0.1.0" {
		t.Errorf("version %q", parsed.Version)
	}
	if parsed.Config["TEST_CONST"] != "42" || parsed.Config["NAME"] != "hello" {
		t.Errorf("config %v", parsed.Config)
	}
	if parsed.Commands["cmd arg=%c"] != 1 || parsed.Commands["plain"] != 2 {
		t.Errorf("commands %v", parsed.Commands)
	}
	if id, ok := parsed.Responses["resp v=%u"]; !ok || id != 0 {
		t.Errorf("responses %v", parsed.Responses)
	}
}

func TestDictionaryCacheInvalidation(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.BuildDictionary()
	before := dict.Generate()

	dict.AddConstant("LATE", 1)
	if bytes.Equal(before, dict.Generate()) {
		t.Error("constant added after build is missing")
	}
}

func TestDictionaryChunks(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("TEST", uint32(123))
	dict.BuildDictionary()
	full := dict.Generate()

	var got []byte
	for offset := uint32(0); ; {
		chunk := dict.GetChunk(offset, 10)
		if len(chunk) > 10 {
			t.Fatalf("chunk of %d bytes", len(chunk))
		}
		if len(chunk) == 0 {
			break
		}
		got = append(got, chunk...)
		offset += uint32(len(chunk))
	}
	if !bytes.Equal(got, full) {
		t.Errorf("reassembled %q, want %q", got, full)
	}

	if len(dict.GetChunk(uint32(len(full)), 10)) != 0 || len(dict.GetChunk(uint32(len(full)+100), 10)) != 0 {
		t.Error("chunks at or past the end must be empty")
	}
}
