package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/model"
)

// FeatureStore assigns per-tile local IDs to match records and keeps the
// records for feature assembly.
type FeatureStore struct {
	Mu                  sync.RWMutex
	Records             map[uint32]model.MatchRecord // Local ID to full record
	ExternalIDtoLocalID map[string]uint32            // Record external ID to local ID
	NextID              uint32
	MaxID               uint64 // Largest local ID that fits a tile ID
}

// msgpackFeatureStoreData is a helper struct for msgpack encoding FeatureStore data.
// It excludes the mutex. Records are stored as their JSON wire form because
// geometries are interfaces msgpack cannot reconstruct.
type msgpackFeatureStoreData struct {
	Records             map[uint32][]byte `msgpack:"records"`
	ExternalIDtoLocalID map[string]uint32 `msgpack:"external_ids"`
	NextID              uint32            `msgpack:"next_id"`
	MaxID               uint64            `msgpack:"max_id"`
}

// NewFeatureStore creates an empty store handing out local IDs up to maxID.
func NewFeatureStore(maxID uint64) *FeatureStore {
	return &FeatureStore{
		Records:             make(map[uint32]model.MatchRecord),
		ExternalIDtoLocalID: make(map[string]uint32),
		MaxID:               maxID,
	}
}

// Put stores a record and returns its local ID. A record whose external ID is
// already known replaces the old record and keeps its local ID.
func (fs *FeatureStore) Put(rec model.MatchRecord) (uint32, error) {
	if rec.ExternalID == "" {
		return 0, errors.NewValidationError("externalID", "record has no external id")
	}

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	if id, ok := fs.ExternalIDtoLocalID[rec.ExternalID]; ok {
		fs.Records[id] = rec
		return id, nil
	}
	if uint64(fs.NextID) > fs.MaxID {
		return 0, errors.NewTileRangeError(uint64(fs.NextID), fs.MaxID)
	}

	id := fs.NextID
	fs.NextID++
	fs.Records[id] = rec
	fs.ExternalIDtoLocalID[rec.ExternalID] = id
	return id, nil
}

// Get returns the record stored under a local ID.
func (fs *FeatureStore) Get(localID uint32) (model.MatchRecord, bool) {
	fs.Mu.RLock()
	defer fs.Mu.RUnlock()
	rec, ok := fs.Records[localID]
	return rec, ok
}

// Lookup returns a record and its local ID by external ID.
func (fs *FeatureStore) Lookup(externalID string) (model.MatchRecord, uint32, error) {
	fs.Mu.RLock()
	defer fs.Mu.RUnlock()

	id, ok := fs.ExternalIDtoLocalID[externalID]
	if !ok {
		return model.MatchRecord{}, 0, errors.NewRecordNotFoundError(externalID)
	}
	return fs.Records[id], id, nil
}

// Len returns the number of stored records.
func (fs *FeatureStore) Len() int {
	fs.Mu.RLock()
	defer fs.Mu.RUnlock()
	return len(fs.Records)
}

// EncodeMsgpack implements the msgpack.CustomEncoder interface for FeatureStore.
func (fs *FeatureStore) EncodeMsgpack(enc *msgpack.Encoder) error {
	fs.Mu.RLock()
	defer fs.Mu.RUnlock()

	records := make(map[uint32][]byte, len(fs.Records))
	for id, rec := range fs.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ExternalID, err)
		}
		records[id] = data
	}

	return enc.Encode(msgpackFeatureStoreData{
		Records:             records,
		ExternalIDtoLocalID: fs.ExternalIDtoLocalID,
		NextID:              fs.NextID,
		MaxID:               fs.MaxID,
	})
}

// DecodeMsgpack implements the msgpack.CustomDecoder interface for FeatureStore.
func (fs *FeatureStore) DecodeMsgpack(dec *msgpack.Decoder) error {
	var decoded msgpackFeatureStoreData
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode feature store data: %w", err)
	}

	records := make(map[uint32]model.MatchRecord, len(decoded.Records))
	for id, data := range decoded.Records {
		var rec model.MatchRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to decode record %d: %w", id, err)
		}
		records[id] = rec
	}

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	fs.Records = records
	fs.ExternalIDtoLocalID = decoded.ExternalIDtoLocalID
	fs.NextID = decoded.NextID
	fs.MaxID = decoded.MaxID

	// Ensure maps are initialized if they were nil after decoding
	if fs.ExternalIDtoLocalID == nil {
		fs.ExternalIDtoLocalID = make(map[string]uint32)
	}
	return nil
}
