package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TagPrefix is prepended to the exchange name for transfers into a known
// exchange address.
const TagPrefix = "INFLOW_"

// Book maps lower-cased addresses to exchange tags. It is read-only once
// built and safe for concurrent use.
type Book struct {
	tags map[string]string
}

// New builds a Book from exchange name to addresses. Entries that are not
// 0x-prefixed 20-byte hex addresses are ignored.
func New(exchanges map[string][]string) *Book {
	b := &Book{tags: make(map[string]string)}

	names := make([]string, 0, len(exchanges))
	for name := range exchanges {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, addr := range exchanges[name] {
			if !isAddress(addr) {
				continue
			}
			key := strings.ToLower(addr)
			if _, ok := b.tags[key]; ok {
				continue
			}
			b.tags[key] = TagPrefix + strings.ToUpper(name)
		}
	}
	return b
}

// Load reads an exchanges file of the form {"binance": ["0x..."]}. A missing
// file yields an empty book.
func Load(path string) (*Book, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read exchanges file: %w", err)
	}

	var exchanges map[string][]string
	if err := json.Unmarshal(raw, &exchanges); err != nil {
		return nil, fmt.Errorf("failed to parse exchanges file: %w", err)
	}
	return New(exchanges), nil
}

// Lookup returns the tag for address, or "".
func (b *Book) Lookup(address string) string {
	return b.tags[strings.ToLower(address)]
}

func (b *Book) Len() int {
	return len(b.tags)
}

func isAddress(s string) bool {
	return len(s) == 42 && strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}
