package normalize

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed nicknames.toml
var defaultNicknamesTOML string

// Nicknames maps diminutive given names to a canonical legal form. It is
// read-only once loaded.
type Nicknames struct {
	canonical map[string]string
}

type nicknameFile struct {
	Names []struct {
		Canonical string   `toml:"canonical"`
		Variants  []string `toml:"variants"`
	} `toml:"names"`
}

var (
	defaultOnce      sync.Once
	defaultNicknames *Nicknames
)

// DefaultNicknames returns the dictionary compiled into the binary.
func DefaultNicknames() *Nicknames {
	defaultOnce.Do(func() {
		n, err := ParseNicknames(strings.NewReader(defaultNicknamesTOML))
		if err != nil {
			panic(fmt.Sprintf("embedded nickname dictionary: %v", err))
		}
		defaultNicknames = n
	})
	return defaultNicknames
}

// LoadNicknames reads a dictionary from a TOML file on disk.
func LoadNicknames(path string) (*Nicknames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nickname dictionary: %w", err)
	}
	defer f.Close()
	return ParseNicknames(f)
}

// ParseNicknames decodes a dictionary of the form
//
//	[[names]]
//	canonical = "ROBERT"
//	variants  = ["BOB", "BOBBY", "ROB"]
//
// When a variant appears under several canonical names the first entry wins.
func ParseNicknames(r io.Reader) (*Nicknames, error) {
	var file nicknameFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode nickname dictionary: %w", err)
	}

	n := &Nicknames{canonical: make(map[string]string)}
	for i, entry := range file.Names {
		canonical := lettersOnly(CleanName(entry.Canonical))
		if canonical == "" {
			return nil, fmt.Errorf("nickname entry %d: canonical name is empty", i)
		}
		n.add(canonical, canonical)
		for _, v := range entry.Variants {
			if key := lettersOnly(CleanName(v)); key != "" {
				n.add(key, canonical)
			}
		}
	}
	return n, nil
}

func (n *Nicknames) add(name, canonical string) {
	if _, exists := n.canonical[name]; !exists {
		n.canonical[name] = canonical
	}
}

// Canonical returns the legal form of name, if the dictionary knows it.
func (n *Nicknames) Canonical(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	c, ok := n.canonical[name]
	return c, ok
}

// Len returns the number of known spellings.
func (n *Nicknames) Len() int {
	if n == nil {
		return 0
	}
	return len(n.canonical)
}
