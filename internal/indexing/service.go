package indexing

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/gcbaptista/go-geocode-keys/index"
	"github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/internal/feature"
	"github.com/gcbaptista/go-geocode-keys/internal/logger"
	"github.com/gcbaptista/go-geocode-keys/internal/persistence"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/internal/tilecode"
	"github.com/gcbaptista/go-geocode-keys/model"
	"github.com/gcbaptista/go-geocode-keys/services"
	"github.com/gcbaptista/go-geocode-keys/store"
)

const (
	manifestFile = "manifest.msgpack"
	featuresFile = "features.msgpack"
)

// manifest lists what Persist wrote so Restore knows which shard files to read.
type manifest struct {
	ID         string                  `msgpack:"id"`
	ShardLevel int                     `msgpack:"shard_level"`
	Shards     map[index.Kind][]uint32 `msgpack:"shards"`
	Vocabulary map[string]uint32       `msgpack:"vocabulary"`
}

var _ services.IndexAccessor = (*Service)(nil)

// Service builds the postings of a single index from match records.
// It fulfills the services.Indexer and services.Lookup interfaces.
type Service struct {
	mu       sync.RWMutex // serializes writers; guards vocab
	encoder  *termops.Encoder
	coder    *tilecode.Coder
	cache    *index.Cache
	features *store.FeatureStore
	vocab    *patricia.Trie
	log      *log.Logger
}

// NewService creates a new indexing Service.
// A nil logger discards output.
func NewService(encoder *termops.Encoder, cache *index.Cache, features *store.FeatureStore, l *log.Logger) (*Service, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("index cache cannot be nil")
	}
	if features == nil {
		return nil, fmt.Errorf("feature store cannot be nil")
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Service{
		encoder:  encoder,
		coder:    tilecode.NewCoder(encoder.Scheme()),
		cache:    cache,
		features: features,
		vocab:    patricia.NewTrie(),
		log:      l,
	}, nil
}

// Encoder returns the encoder the service hashes with.
func (s *Service) Encoder() *termops.Encoder {
	return s.encoder
}

// Cache returns the postings cache the service writes to.
func (s *Service) Cache() *index.Cache {
	return s.cache
}

// AddRecords indexes a batch of records. Records are processed in order and
// the first failing record aborts the batch; records before it stay indexed.
func (s *Service) AddRecords(records []model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		if err := s.addRecordUnsafe(&records[i]); err != nil {
			return fmt.Errorf("failed to add record %d (%s): %w", i, records[i].ExternalID, err)
		}
	}
	s.log.Debug("indexed records", "count", len(records), "total", s.features.Len())
	return nil
}

// addRecordUnsafe indexes one record. The caller holds s.mu.
func (s *Service) addRecordUnsafe(rec *model.MatchRecord) error {
	if rec.ExternalID == "" {
		return errors.NewValidationError("externalID", "record has no external id")
	}
	if rec.Center == nil {
		return errors.NewValidationError("center", "record has no center")
	}
	synonyms := rec.Synonyms()
	if len(synonyms) == 0 {
		return errors.NewValidationError("text", "record has no text")
	}

	// An update drops the old record's grid entries before the new ones are written.
	if old, localID, err := s.features.Lookup(rec.ExternalID); err == nil && old.Center != nil {
		oldTile := s.coder.Encode(s.coder.TileAt(*old.Center), uint64(localID))
		for _, syn := range old.Synonyms() {
			tokens := s.encoder.Normalizer().Tokenize(syn)
			if len(tokens) == 0 {
				continue
			}
			s.removeGrid(uint64(s.encoder.Phrase(s.encoder.Terms(tokens))), oldTile)
		}
	}

	localID, err := s.features.Put(*rec)
	if err != nil {
		return err
	}
	tileID, err := s.coder.EncodeChecked(s.coder.TileAt(*rec.Center), uint64(localID))
	if err != nil {
		return err
	}

	for _, syn := range synonyms {
		tokens := s.encoder.Normalizer().Tokenize(syn)
		if len(tokens) == 0 {
			s.log.Warn("synonym yields no tokens", "externalID", rec.ExternalID, "synonym", syn)
			continue
		}
		terms := s.encoder.Terms(tokens)
		phrase := s.encoder.Phrase(terms)

		phraseTerms := make([]uint64, len(terms))
		for i, t := range terms {
			phraseTerms[i] = uint64(t)
		}
		s.cache.Set(index.KindPhrase, s.cache.ShardOf(uint64(phrase)), uint64(phrase), phraseTerms)

		weights := s.termWeights(tokens)
		for i, token := range tokens {
			s.vocab.Set(patricia.Prefix(token), terms[i])
			s.addWeighted(terms[i], s.encoder.Weighted(phrase, weights[i]))

			degens := s.encoder.Degens(token)
			for j := 0; j+1 < len(degens); j += 2 {
				s.addDegen(degens[j], degens[j+1])
			}
		}
		s.addGrid(uint64(phrase), tileID)
	}
	return nil
}

// termWeights gives each token its share of the phrase's characters, scaled
// to the distance field. Every token weighs at least 1.
func (s *Service) termWeights(tokens []string) []int {
	maxWeight := s.encoder.Scheme().MaxDistance()
	total := 0
	for _, t := range tokens {
		total += utf8.RuneCountInString(t)
	}
	weights := make([]int, len(tokens))
	for i, t := range tokens {
		w := 1
		if total > 0 {
			w = (utf8.RuneCountInString(t)*maxWeight + total/2) / total
		}
		weights[i] = max(w, 1)
	}
	return weights
}

// addWeighted files a weighted phrase ID under a term, replacing any earlier
// weight for the same phrase, and keeps the list heaviest first.
func (s *Service) addWeighted(term uint32, weighted uint32) {
	shard := s.cache.ShardOf(uint64(term))
	existing, _ := s.cache.Get(index.KindTerm, shard, uint64(term))

	mask := uint64(s.encoder.Scheme().BaseMask())
	list := make([]uint32, 0, len(existing)+1)
	for _, v := range existing {
		if v&mask != uint64(weighted)&mask {
			list = append(list, uint32(v))
		}
	}
	list = append(list, weighted)
	slices.SortStableFunc(list, s.encoder.SortWeighted)

	s.cache.Set(index.KindTerm, shard, uint64(term), widen(list))
}

// addDegen files a degenerate value under its prefix key, nearest first.
func (s *Service) addDegen(key, value uint32) {
	shard := s.cache.ShardOf(uint64(key))
	existing, _ := s.cache.Get(index.KindDegen, shard, uint64(key))
	if slices.Contains(existing, uint64(value)) {
		return
	}

	list := make([]uint32, 0, len(existing)+1)
	for _, v := range existing {
		list = append(list, uint32(v))
	}
	list = append(list, value)
	slices.SortStableFunc(list, s.encoder.SortDegens)

	s.cache.Set(index.KindDegen, shard, uint64(key), widen(list))
}

func (s *Service) addGrid(phrase, tileID uint64) {
	shard := s.cache.ShardOf(phrase)
	existing, _ := s.cache.Get(index.KindGrid, shard, phrase)
	bm := roaring64.BitmapOf(existing...)
	bm.Add(tileID)
	s.cache.Set(index.KindGrid, shard, phrase, bm.ToArray())
}

func (s *Service) removeGrid(phrase, tileID uint64) {
	shard := s.cache.ShardOf(phrase)
	existing, ok := s.cache.Get(index.KindGrid, shard, phrase)
	if !ok {
		return
	}
	bm := roaring64.BitmapOf(existing...)
	bm.Remove(tileID)
	s.cache.Set(index.KindGrid, shard, phrase, bm.ToArray())
}

func widen(list []uint32) []uint64 {
	out := make([]uint64, len(list))
	for i, v := range list {
		out[i] = uint64(v)
	}
	return out
}

// Postings returns the postings stored under id. Unknown ids yield an empty list.
func (s *Service) Postings(kind index.Kind, id uint64) []uint64 {
	values, ok := s.cache.Get(kind, s.cache.ShardOf(id), id)
	if !ok {
		return []uint64{}
	}
	return values
}

// Vocabulary lists indexed tokens starting with prefix in lexical order.
func (s *Service) Vocabulary(prefix string) []services.VocabularyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]services.VocabularyEntry, 0)
	_ = s.vocab.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if id, ok := item.(uint32); ok {
			entries = append(entries, services.VocabularyEntry{Token: string(p), TermID: id})
		}
		return nil
	})
	return entries
}

// Context looks up records by external ID, most specific first.
func (s *Service) Context(relevance float64, externalIDs ...string) (model.Context, error) {
	ctx := model.Context{Records: make([]model.MatchRecord, 0, len(externalIDs)), Relevance: relevance}
	for _, id := range externalIDs {
		rec, _, err := s.features.Lookup(id)
		if err != nil {
			return model.Context{}, err
		}
		ctx.Records = append(ctx.Records, rec)
	}
	return ctx, nil
}

// Feature assembles the result for a chain of indexed records.
func (s *Service) Feature(relevance float64, externalIDs ...string) (*model.Feature, error) {
	ctx, err := s.Context(relevance, externalIDs...)
	if err != nil {
		return nil, err
	}
	return feature.ToFeature(ctx)
}

// Stats counts records, vocabulary entries and shards per kind.
func (s *Service) Stats() services.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := services.Stats{Records: s.features.Len(), Shards: make(map[index.Kind]int, len(index.Kinds))}
	_ = s.vocab.Visit(func(patricia.Prefix, patricia.Item) error {
		st.Vocabulary++
		return nil
	})
	for _, k := range index.Kinds {
		st.Shards[k] = len(s.cache.List(k))
	}
	return st
}

// Persist writes every shard, the feature store and a manifest into dir.
func (s *Service) Persist(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := manifest{
		ID:         s.cache.ID(),
		ShardLevel: s.cache.ShardLevel(),
		Shards:     make(map[index.Kind][]uint32, len(index.Kinds)),
		Vocabulary: make(map[string]uint32),
	}
	for _, kind := range index.Kinds {
		shards := s.cache.List(kind)
		for _, shard := range shards {
			data, err := s.cache.Pack(kind, shard)
			if err != nil {
				return err
			}
			if err := persistence.SaveMsgpack(shardPath(dir, kind, shard), data); err != nil {
				return fmt.Errorf("failed to persist %s shard %d: %w", kind, shard, err)
			}
		}
		m.Shards[kind] = shards
	}
	_ = s.vocab.Visit(func(p patricia.Prefix, item patricia.Item) error {
		if id, ok := item.(uint32); ok {
			m.Vocabulary[string(p)] = id
		}
		return nil
	})

	if err := persistence.SaveMsgpack(filepath.Join(dir, featuresFile), s.features); err != nil {
		return fmt.Errorf("failed to persist feature store: %w", err)
	}
	if err := persistence.SaveMsgpack(filepath.Join(dir, manifestFile), m); err != nil {
		return fmt.Errorf("failed to persist manifest: %w", err)
	}
	s.log.Info("index persisted", "id", m.ID, "dir", dir, "records", s.features.Len())
	return nil
}

// Restore replaces the service's cache, store and vocabulary with what Persist
// wrote. A directory without a manifest returns an error wrapping os.ErrNotExist.
func (s *Service) Restore(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m manifest
	if err := persistence.LoadMsgpack(filepath.Join(dir, manifestFile), &m); err != nil {
		return fmt.Errorf("failed to load manifest from %s: %w", dir, err)
	}
	if m.ShardLevel != s.cache.ShardLevel() {
		return errors.NewValidationError("shard_level",
			fmt.Sprintf("persisted index uses shard level %d, configured %d", m.ShardLevel, s.cache.ShardLevel()))
	}

	s.cache.Reset()
	for kind, shards := range m.Shards {
		for _, shard := range shards {
			var data []byte
			if err := persistence.LoadMsgpack(shardPath(dir, kind, shard), &data); err != nil {
				return fmt.Errorf("failed to restore %s shard %d: %w", kind, shard, err)
			}
			if err := s.cache.Load(data, kind, shard); err != nil {
				return err
			}
		}
	}
	if err := persistence.LoadMsgpack(filepath.Join(dir, featuresFile), s.features); err != nil {
		return fmt.Errorf("failed to restore feature store: %w", err)
	}

	s.vocab = patricia.NewTrie()
	for token, id := range m.Vocabulary {
		s.vocab.Set(patricia.Prefix(token), id)
	}
	s.log.Info("index restored", "id", m.ID, "dir", dir, "records", s.features.Len())
	return nil
}

func shardPath(dir string, kind index.Kind, shard uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d.msgpack", kind, shard))
}
