package profile

import (
	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/lib/textutil"
)

// Seed is a known university row that short-circuits the basic-info lookup.
type Seed struct {
	ID           int64
	Name         string
	Abbreviation string
	Website      string
	Wikipedia    string
}

func (s Seed) BasicInfo() adapters.BasicInfo {
	return adapters.BasicInfo{
		UniversityName: s.Name,
		Abbreviation:   s.Abbreviation,
		Website:        s.Website,
		Wikipedia:      s.Wikipedia,
	}
}

type Seeds struct {
	byName map[string]Seed
}

// NewSeeds indexes the rows by name and abbreviation. A later row wins over
// an earlier one with the same key.
func NewSeeds(rows []Seed) *Seeds {
	s := &Seeds{byName: make(map[string]Seed, len(rows)*2)}
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		s.byName[textutil.NormalizeName(row.Name)] = row
		if row.Abbreviation != "" {
			s.byName[textutil.NormalizeName(row.Abbreviation)] = row
		}
	}
	return s
}

func (s *Seeds) Lookup(name string) (Seed, bool) {
	if s == nil {
		return Seed{}, false
	}
	seed, ok := s.byName[textutil.NormalizeName(name)]
	return seed, ok
}
