package profile

import (
	"slices"
	"sync"

	"github.com/IvanKyuu/university-crawl/lib/textutil"
)

type indexKey struct {
	kind Kind
	name string
}

// Index holds the records built during a run, keyed by normalized name.
// A record may be registered under several names.
type Index struct {
	mutex   sync.RWMutex
	records map[indexKey]*Record
	lastID  map[Kind]int64
}

func NewIndex() *Index {
	return &Index{
		records: map[indexKey]*Record{},
		lastID:  map[Kind]int64{},
	}
}

func key(kind Kind, name string) indexKey {
	return indexKey{kind: kind, name: textutil.NormalizeName(name)}
}

func (i *Index) Get(kind Kind, name string) (Record, bool) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	record, ok := i.records[key(kind, name)]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// Put registers the record under its entity name and every alias, replacing
// whatever those names pointed at.
func (i *Index) Put(record Record, aliases ...string) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	stored := &record
	i.records[key(record.Kind, record.Entity())] = stored
	for _, alias := range aliases {
		if alias != "" {
			i.records[key(record.Kind, alias)] = stored
		}
	}
	if record.ID > i.lastID[record.Kind] {
		i.lastID[record.Kind] = record.ID
	}
}

// NextID reserves the next unused id of the kind.
func (i *Index) NextID(kind Kind) int64 {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.lastID[kind]++
	return i.lastID[kind]
}

// All returns each distinct record of the kind once, ordered by id.
func (i *Index) All(kind Kind) []Record {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	seen := map[*Record]bool{}
	var out []Record
	for k, record := range i.records {
		if k.kind != kind || seen[record] {
			continue
		}
		seen[record] = true
		out = append(out, *record)
	}
	slices.SortFunc(out, func(a, b Record) int {
		if a.ID != b.ID {
			if a.ID < b.ID {
				return -1
			}
			return 1
		}
		if a.Entity() < b.Entity() {
			return -1
		}
		if a.Entity() > b.Entity() {
			return 1
		}
		return 0
	})
	return out
}
