package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
)

// MemoryProvider is an indexed in-memory registry. Safe for concurrent use;
// Add may run while lookups are in flight.
type MemoryProvider struct {
	normalizer *normalize.Normalizer

	mu        sync.RWMutex
	records   []models.CandidateRecord
	keys      []indexKeys
	bySurname map[string][]int
	byLocalID map[string][]int
	byPEN     map[string][]int
	nextSeq   int64
}

// NewMemoryProvider creates an empty registry.
func NewMemoryProvider(n *normalize.Normalizer) *MemoryProvider {
	if n == nil {
		n = normalize.New(nil)
	}
	return &MemoryProvider{
		normalizer: n,
		bySurname:  make(map[string][]int),
		byLocalID:  make(map[string][]int),
		byPEN:      make(map[string][]int),
		nextSeq:    1,
	}
}

// Add indexes records. A record without Sequence gets the next ordinal.
func (p *MemoryProvider) Add(records ...models.CandidateRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range records {
		if r.Sequence == 0 {
			r.Sequence = p.nextSeq
		}
		if r.Sequence >= p.nextSeq {
			p.nextSeq = r.Sequence + 1
		}
		idx := len(p.records)
		keys := rowKeys(p.normalizer, r)
		p.records = append(p.records, r)
		p.keys = append(p.keys, keys)

		if keys.surnamePhonetic != "" {
			p.bySurname[keys.surnamePhonetic] = append(p.bySurname[keys.surnamePhonetic], idx)
		}
		if keys.localMincode != "" {
			p.byLocalID[keys.localMincode] = append(p.byLocalID[keys.localMincode], idx)
		}
		for _, pen := range keys.pens {
			p.byPEN[pen] = append(p.byPEN[pen], idx)
		}
	}
}

// Len returns the number of records.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Lookup returns the PEN block, then the local ID block, then the phonetic
// surname block. The exact-key blocks are never cut; the phonetic block is
// ordered by plausibility and fills what is left of maxCandidates.
func (p *MemoryProvider) Lookup(ctx context.Context, search models.NormalizedRecord, maxCandidates int) ([]models.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := KeysFor(search)
	if keys.IsEmpty() {
		return nil, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[int]struct{})
	take := func(idxs []int) []int {
		var fresh []int
		for _, i := range idxs {
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			fresh = append(fresh, i)
		}
		sort.Slice(fresh, func(a, b int) bool {
			return p.records[fresh[a]].Sequence < p.records[fresh[b]].Sequence
		})
		return fresh
	}

	var exact []int
	if keys.PEN != "" {
		exact = append(exact, take(p.byPEN[keys.PEN])...)
	}
	if keys.LocalID != "" {
		exact = append(exact, take(p.byLocalID[keys.LocalID+"/"+keys.Mincode])...)
	}

	var phonetic []int
	if keys.SurnamePhonetic != "" {
		phonetic = append(phonetic, take(p.bySurname[keys.SurnamePhonetic])...)
	}
	if keys.GivenPhonetic != "" {
		phonetic = append(phonetic, take(p.bySurname[keys.GivenPhonetic])...)
	}
	sort.SliceStable(phonetic, func(a, b int) bool {
		ta, na := keys.plausibility(p.keys[phonetic[a]])
		tb, nb := keys.plausibility(p.keys[phonetic[b]])
		if ta != tb {
			return ta < tb
		}
		if na != nb {
			return na < nb
		}
		return p.records[phonetic[a]].Sequence < p.records[phonetic[b]].Sequence
	})
	if maxCandidates > 0 {
		room := max(maxCandidates-len(exact), 0)
		if len(phonetic) > room {
			phonetic = phonetic[:room]
		}
	}

	out := make([]models.CandidateRecord, 0, len(exact)+len(phonetic))
	for _, i := range exact {
		out = append(out, p.records[i])
	}
	for _, i := range phonetic {
		out = append(out, p.records[i])
	}
	return out, nil
}

// SeedRecord is the JSON shape of a registry seed entry.
type SeedRecord struct {
	PEN         string `json:"pen"`
	Surname     string `json:"surname"`
	GivenName   string `json:"given_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Mincode     string `json:"mincode,omitempty"`
	LocalID     string `json:"local_id,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	TruePEN     string `json:"true_pen,omitempty"`
}

// ToCandidate converts a seed entry.
func (s SeedRecord) ToCandidate() models.CandidateRecord {
	return models.CandidateRecord{
		PEN:         s.PEN,
		Surname:     s.Surname,
		GivenName:   s.GivenName,
		MiddleName:  s.MiddleName,
		DateOfBirth: s.DateOfBirth,
		Gender:      s.Gender,
		Mincode:     s.Mincode,
		LocalID:     s.LocalID,
		PostalCode:  s.PostalCode,
		TruePEN:     s.TruePEN,
	}
}

// ReadSeed decodes a JSON array of SeedRecord. Every entry needs a PEN.
func ReadSeed(r io.Reader) ([]models.CandidateRecord, error) {
	var seed []SeedRecord
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode registry seed: %w", err)
	}
	out := make([]models.CandidateRecord, 0, len(seed))
	for i, s := range seed {
		if s.PEN == "" {
			return nil, fmt.Errorf("registry seed entry %d has no pen", i)
		}
		out = append(out, s.ToCandidate())
	}
	return out, nil
}

// LoadSeedFile reads a seed file into p.
func (p *MemoryProvider) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open registry seed: %w", err)
	}
	defer f.Close()
	records, err := ReadSeed(f)
	if err != nil {
		return err
	}
	p.Add(records...)
	return nil
}
