// Package program holds the immutable byte image the engine executes.
package program

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/colorfulnotion/avacore/avaerrors"
	"golang.org/x/crypto/blake2b"
)

// Program is an ordered, immutable byte sequence. No header, no length
// prefix.
type Program struct {
	code []byte
	hash [32]byte
}

// New copies code into a new Program.
func New(code []byte) *Program {
	c := bytes.Clone(code)
	if c == nil {
		c = []byte{}
	}
	return &Program{code: c, hash: blake2b.Sum256(c)}
}

func (p *Program) Len() int {
	return len(p.code)
}

// Byte returns the byte at addr; ok is false past the end.
func (p *Program) Byte(addr int) (byte, bool) {
	if addr < 0 || addr >= len(p.code) {
		return 0, false
	}
	return p.code[addr], true
}

// Bytes returns a copy of the image.
func (p *Program) Bytes() []byte {
	return bytes.Clone(p.code)
}

// Hash is the blake2b-256 digest of the image.
func (p *Program) Hash() [32]byte {
	return p.hash
}

func (p *Program) HashHex() string {
	return hex.EncodeToString(p.hash[:])
}

// String renders the image as space separated hex bytes.
func (p *Program) String() string {
	var sb strings.Builder
	for i, b := range p.code {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// ParseHex decodes hex text. Bytes may be separated by whitespace or commas,
// may carry a 0x prefix, and '#' or "//" start a comment running to the end
// of the line.
func ParseHex(text string) (*Program, error) {
	var code []byte
	for n, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == '\r'
		})
		for _, f := range fields {
			f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
			if len(f)%2 != 0 {
				return nil, fmt.Errorf("line %d: %q: %w", n+1, f, avaerrors.ErrHBadHex)
			}
			b, err := hex.DecodeString(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %q: %w", n+1, f, avaerrors.ErrHBadHex)
			}
			code = append(code, b...)
		}
	}
	return New(code), nil
}

// IsHexPath reports whether a file name suggests hex text rather than raw bytes.
func IsHexPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".txt":
		return true
	}
	return false
}

// Load reads a program image from path. Hex text is decoded when asHex is
// set or the extension is .hex/.txt; otherwise the file is the raw image.
func Load(path string, asHex bool) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var p *Program
	if asHex || IsHexPath(path) {
		p, err = ParseHex(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		p = New(data)
	}
	if p.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, avaerrors.ErrHEmptyProgram)
	}
	return p, nil
}
